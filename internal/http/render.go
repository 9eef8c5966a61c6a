package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/storage"
)

// pageData is the template model for the dashboard and its partials.
type pageData struct {
	services.View
	Error        string
	Currency     string
	Highlights   []string
	Runway       string
	Form         formValues
	AddCategory  categoryChoice
	EditCategory categoryChoice
}

// formValues echoes what the user typed back into the add form after a
// rejected submission.
type formValues struct {
	Date        string
	Amount      string
	Category    string
	Description string
}

// categoryChoice feeds the category picker. Auto adds an empty option that
// leaves the choice to the classifier.
type categoryChoice struct {
	Auto       bool
	Categories []core.Category
	Selected   core.Category
	Suggested  core.Category
}

func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money":  func(d decimal.Decimal) string { return s.formatter.Format(d) },
		"moneyf": func(v float64) string { return s.formatter.FormatFloat(v) },
		"pct":    func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"date":   func(d core.Date) string { return d.String() },
	}
}

func (s *Server) newPage(v services.View) pageData {
	p := pageData{
		View:       v,
		Currency:   s.currency,
		Highlights: services.DescribeHighlights(v.Report, s.formatter),
		Form:       formValues{Date: core.Today().String()},
	}
	if v.Report.Projection != nil {
		p.Runway = services.DescribeRunway(v.Report.Projection.Runway)
	}
	p.AddCategory = categoryChoice{Auto: true, Categories: v.Categories}
	if v.Editing != nil {
		p.EditCategory = categoryChoice{Categories: v.Categories, Selected: v.Editing.Expense.Category}
	}
	return p
}

// withForm keeps the rejected add-form input on the page.
func (p pageData) withForm(in services.ExpenseInput) pageData {
	p.Form = formValues{Date: in.Date, Amount: in.Amount, Category: in.Category, Description: in.Description}
	if c, err := core.ParseCategory(in.Category); err == nil {
		p.AddCategory.Selected = c
	}
	return p
}

// renderPage writes the whole dashboard, or just the #app fragment for
// htmx requests.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, p pageData, b *HTMXResponseBuilder) {
	name := "dashboard.html"
	if isHTMX(r) {
		name = "app"
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	s.respond(w, r, b.Status(status).Template(s.templates, name, p))
}

// respond writes b, falling back to a 500 fragment when its body could not
// be produced.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder) {
	if b.Err() == nil {
		_ = b.Write(w)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Response build failed",
		log.FieldError, b.Err().Error(),
		log.FieldOperation, log.OpRender)
	_ = InternalServerError("Could not render the page").Write(w)
}

// errorStatus maps a command error to a response status.
func errorStatus(err error) int {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrIndexOutOfRange):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error, status int) string {
	switch status {
	case http.StatusUnprocessableEntity:
		return "Invalid input: " + err.Error()
	case http.StatusNotFound:
		return "That expense no longer exists."
	default:
		return "Something went wrong while saving your changes."
	}
}
