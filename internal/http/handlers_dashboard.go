package http

import (
	"fmt"
	"net/http"

	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/session"
	"smartspend/internal/storage"
)

var errBadIndex = fmt.Errorf("%w: not a ledger index", storage.ErrIndexOutOfRange)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	sess, view, err := s.dashboard.Refresh(r.Context(), sess)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Ledger load failed",
			log.FieldSessionID, sess.ID,
			log.FieldError, err.Error())
		InternalServerError("Could not load expenses").Write(w)
		return
	}
	s.sessions.Save(sess)
	s.renderPage(w, r, http.StatusOK, s.newPage(view), nil)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	f, err := readForm(r)
	if err != nil {
		s.renderError(w, r, sess, &services.ValidationError{Field: "body", Err: err}, nil)
		return
	}
	in := expenseInput(f)
	e, err := in.Parse()
	if err != nil {
		s.renderError(w, r, sess, err, &in)
		return
	}
	s.runCommand(w, r, sess, services.AddExpense{Expense: e}, &in)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	i, ok := parseIndex(r)
	if !ok {
		s.renderError(w, r, sess, errBadIndex, nil)
		return
	}
	s.runCommand(w, r, sess, services.BeginEdit{Index: i}, nil)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	i, ok := parseIndex(r)
	if !ok {
		s.renderError(w, r, sess, errBadIndex, nil)
		return
	}
	f, err := readForm(r)
	if err != nil {
		s.renderError(w, r, sess, &services.ValidationError{Field: "body", Err: err}, nil)
		return
	}
	e, err := expenseInput(f).Parse()
	if err != nil {
		s.renderError(w, r, sess, err, nil)
		return
	}
	s.runCommand(w, r, sess, services.UpdateExpense{Index: i, Expense: e}, nil)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	i, ok := parseIndex(r)
	if !ok {
		s.renderError(w, r, sess, errBadIndex, nil)
		return
	}
	s.runCommand(w, r, sess, services.DeleteExpense{Index: i}, nil)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	s.runCommand(w, r, sess, services.CancelEdit{}, nil)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.FromRequest(w, r)
	f, err := readForm(r)
	if err != nil {
		s.renderError(w, r, sess, &services.ValidationError{Field: "body", Err: err}, nil)
		return
	}
	budget, err := services.ParseBudget(f.Get("budget"))
	if err != nil {
		s.renderError(w, r, sess, err, nil)
		return
	}
	s.runCommand(w, r, sess, services.SetBudget{Budget: budget}, nil)
}

// runCommand executes cmd, stores the new session and renders the fresh
// view with the matching htmx events.
func (s *Server) runCommand(w http.ResponseWriter, r *http.Request, sess session.Context, cmd services.Command, in *services.ExpenseInput) {
	next, view, err := s.dashboard.Execute(r.Context(), sess, cmd)
	if err != nil {
		s.renderError(w, r, sess, err, in)
		return
	}
	s.sessions.Save(next)

	b := NewHTMXResponse()
	switch cmd.(type) {
	case services.AddExpense:
		b.TriggerLedgerChanged(view.Report.Count).TriggerFormReset()
	case services.UpdateExpense, services.DeleteExpense:
		b.TriggerLedgerChanged(view.Report.Count)
	case services.SetBudget:
		b.TriggerBudgetChanged(next.Budget.String())
	}
	if view.Notice != "" {
		b.TriggerSuccessNotification(view.Notice)
	}
	s.renderPage(w, r, http.StatusOK, s.newPage(view), b)
}

// renderError answers a failed command. htmx callers get a bare error
// fragment; full-page callers get the dashboard with the error shown and
// the add form refilled from in.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, sess session.Context, cause error, in *services.ExpenseInput) {
	ctx := r.Context()
	status := errorStatus(cause)
	msg := errorMessage(cause, status)
	logger := log.FromContext(ctx)
	if status == http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(ctx, "Command failed", cause, log.ComponentHTTP, r.Method+" "+r.URL.Path,
			log.NewFields().WithSessionID(sess.ID).WithClientIP(s.detector.ExtractClientIP(r)))
	} else {
		logger.InfoContext(ctx, "Command rejected", log.FieldSessionID, sess.ID, log.FieldError, cause.Error())
	}

	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}

	sess, view, err := s.dashboard.Refresh(ctx, sess)
	if err != nil {
		InternalServerError("Could not load expenses").Write(w)
		return
	}
	s.sessions.Save(sess)
	p := s.newPage(view)
	p.Error = msg
	if in != nil {
		p = p.withForm(*in)
	}
	s.renderPage(w, r, status, p, nil)
}
