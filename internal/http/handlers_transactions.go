package http

import (
	"errors"
	"net/http"
	"strconv"

	"cashbook/internal/core"
	"cashbook/internal/log"
)

func (s *Server) page(f core.Filter) pageView {
	v := s.ledger.View(f)
	return pageView{
		Form:    newForm(s.taxonomy, s.now()),
		Filters: newFilters(s.taxonomy, f),
		Summary: newSummary(s.symbol, v),
		List:    newList(s.symbol, v),
		Charts:  newCharts(s.symbol, s.chartFormat, v),
	}
}

// handleIndex renders the whole page. ?edit=<id> pre-fills the form and
// ?notice= shows the outcome of a no-JS redirect.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := s.page(parseFilter(q))
	data.Notice = noticeText(q.Get("notice"))
	if v := q.Get("edit"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			if tx, ok := s.ledger.Get(id); ok {
				data.Form = editForm(s.taxonomy, tx)
			}
		}
	}
	s.writeTemplate(w, r, NewHTMXResponse(), "index.html", data)
}

// handleSubmit adds or updates depending on the form's hidden id.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if errResp := ParseFormOrFail(r); errResp != nil {
		errResp.Write(w)
		return
	}
	session, err := parseEditSession(r.PostForm)
	if err != nil {
		BadRequestError(MsgInvalidRequest).Write(w)
		return
	}

	fields, err := parseFields(r.PostForm)
	if err == nil {
		var tx core.Transaction
		var updated bool
		tx, updated, err = s.ledger.Submit(ctx, session, fields)
		if err == nil {
			s.submitted(w, r, tx, updated)
			return
		}
	}

	switch {
	case core.IsValidation(err):
		msg := validationMessage(err)
		form := formFromValues(s.taxonomy, session, r.PostForm, msg)
		if !isHTMX(r) {
			data := s.page(core.Filter{})
			data.Form = form
			s.writeTemplate(w, r, NewHTMXResponse().Status(http.StatusUnprocessableEntity), "index.html", data)
			return
		}
		s.writeTemplate(w, r, NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			TriggerErrorNotification(msg), "form", form)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(MsgNotFound).Write(w)
	default:
		logger.LogError(ctx, "Failed to save transaction", err, log.OpCreate,
			log.NewFields().WithTransaction(fields.WithID(session.ID)))
		InternalServerError(MsgSaveFailed).Write(w)
	}
}

func (s *Server) submitted(w http.ResponseWriter, r *http.Request, tx core.Transaction, updated bool) {
	msg, notice := MsgAdded, "added"
	if updated {
		msg, notice = MsgUpdated, "updated"
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), msg, log.FieldTransactionID, tx.ID)

	if !isHTMX(r) {
		http.Redirect(w, r, "/?notice="+notice, http.StatusSeeOther)
		return
	}
	s.writeTemplate(w, r, NewHTMXResponse().
		TriggerStoreChanged(s.ledger.Revision()).
		TriggerFormReset().
		TriggerSuccessNotification(msg), "form", newForm(s.taxonomy, s.now()))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		BadRequestError(MsgInvalidRequest).Write(w)
		return
	}
	tx, ok := s.ledger.Get(id)
	if !ok {
		NotFoundError(MsgNotFound).Write(w)
		return
	}
	s.writeTemplate(w, r, NewHTMXResponse(), "form", editForm(s.taxonomy, tx))
}

// handleNewForm returns an empty form, leaving edit mode.
func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	s.writeTemplate(w, r, NewHTMXResponse(), "form", newForm(s.taxonomy, s.now()))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := parseID(r)
	if err != nil {
		BadRequestError(MsgInvalidRequest).Write(w)
		return
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError(MsgNotFound).Write(w)
			return
		}
		log.FromContext(ctx).LogError(ctx, "Failed to delete transaction", err, log.OpDelete,
			log.NewFields().WithTransaction(core.Transaction{ID: id}))
		InternalServerError("Could not delete the transaction").Write(w)
		return
	}

	if !isHTMX(r) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		http.Redirect(w, r, "/?notice=deleted", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerStoreChanged(s.ledger.Revision()).
		TriggerSuccessNotification(MsgDeleted).
		Write(w)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.View(parseFilter(r.URL.Query()))
	s.writeTemplate(w, r, NewHTMXResponse(), "transactions", newList(s.symbol, v))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.View(core.Filter{})
	s.writeTemplate(w, r, NewHTMXResponse(), "summary", newSummary(s.symbol, v))
}

func (s *Server) handleChartsPanel(w http.ResponseWriter, r *http.Request) {
	v := s.ledger.View(core.Filter{})
	s.writeTemplate(w, r, NewHTMXResponse(), "charts", newCharts(s.symbol, s.chartFormat, v))
}
