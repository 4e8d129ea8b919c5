// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package statusserver exposes motion-correction runs over HTTP: submit a
// job with a frame source and parameters, then poll it for its status. Long
// runs (tens of thousands of ScanImage frames) are impractical to hold open
// over a single request/response cycle, so jobs run in the background. While
// a job runs, a poll reports only its status; the iteration count, shifts
// and empty-frame flags are reported once it has finished.
package statusserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/princeton-ecs/motioncorrect/internal/motioncorrect"
	"github.com/princeton-ecs/motioncorrect/internal/source"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job tracks one motion-correction run submitted via POST /api/v1/jobs.
type Job struct {
	ID       string
	Status   Status
	Error    string
	Result   *motioncorrect.MotionResult
	cancel   context.CancelFunc
}

// jobRequest is the POST body: a list of TIFF paths plus the correction
// parameters, mirroring the teacher's OpSequence-over-JSON idiom but scoped
// to this module's single operation instead of a pipeline DSL.
type jobRequest struct {
	Paths  []string               `json:"paths"`
	Params *motioncorrect.Params  `json:"params"`
}

// Store holds jobs in memory for the lifetime of the process; there is no
// persistence across restarts, matching the teacher's stateless single-box
// deployment model.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

func newJobID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Serve registers routes on r and starts listening, following the
// teacher's api/v1 grouping.
func Serve(store *Store, addr string) error {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/jobs", store.postJob)
			v1.GET("/jobs/:id", store.getJob)
			v1.DELETE("/jobs/:id", store.cancelJob)
		}
	}
	if addr == "" {
		return r.Run()
	}
	return r.Run(addr)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (s *Store) postJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paths must be non-empty"})
		return
	}
	if req.Params == nil {
		req.Params = motioncorrect.NewParamsDefault()
	}

	fs, err := source.NewFileListSource(req.Paths)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	frames := make([][]float32, 0, fs.Header().Frames)
	for {
		f, ok := fs.NextFrame()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	hdr := fs.Header()

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{ID: newJobID(), Status: StatusRunning, cancel: cancel}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go func() {
		result, err := motioncorrect.Run(ctx, frames, hdr.Width, hdr.Height, req.Params, nil)
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case err == motioncorrect.ErrCancelled:
			job.Status = StatusCancelled
		case err != nil:
			job.Status = StatusFailed
			job.Error = err.Error()
		default:
			job.Status = StatusDone
			job.Result = result
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID})
}

func (s *Store) getJob(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", id)})
		return
	}
	resp := gin.H{"id": job.ID, "status": job.Status}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if job.Result != nil {
		resp["iteration"] = job.Result.Iteration
		resp["xShifts"] = job.Result.XShifts
		resp["yShifts"] = job.Result.YShifts
		resp["empty"] = job.Result.Empty
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Store) cancelJob(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("job %s not found", id)})
		return
	}
	job.cancel()
	c.JSON(http.StatusOK, gin.H{"id": job.ID, "status": "cancel requested"})
}
