package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valter-silva-au/gtd-brain/internal/core"
	"github.com/valter-silva-au/gtd-brain/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in models.TaskInput
	if !s.decode(w, r, &in) {
		return
	}
	task, err := s.tasks.CreateTask(in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := models.TaskStatus(r.URL.Query().Get("status"))
	tasks, err := s.tasks.ListTasks(status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.GetTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleSortTask classifies a complete answer bundle in one request.
func (s *Server) handleSortTask(w http.ResponseWriter, r *http.Request) {
	var answers models.SortAnswers
	if !s.decode(w, r, &answers) {
		return
	}
	task, err := s.sorter.SortWithAnswers(chi.URLParam(r, "taskID"), answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.CompleteTask(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sorter.Start(chi.URLParam(r, "taskID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.sorter.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var payload models.AnswerPayload
	if !s.decode(w, r, &payload) {
		return
	}
	answer, err := core.ParseAnswer(payload, s.loc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.sorter.Answer(chi.URLParam(r, "sessionID"), answer)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	view, err := s.sorter.Back(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleAbandon(w http.ResponseWriter, r *http.Request) {
	if err := s.sorter.Abandon(chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tasks.Stats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMotivation(w http.ResponseWriter, r *http.Request) {
	text, err := s.tasks.Motivation()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.tasks.Progress()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"progress": progress})
}
