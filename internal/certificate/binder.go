package certificate

import (
	"strings"
	"time"

	"github.com/JonMunkholm/certgen/internal/sheet"
)

// Defaults used when a role is unresolved or its cell is blank.
const (
	DefaultName       = "Participant"
	DefaultCourse     = "Course"
	DefaultIdentifier = "N/A"
)

// DateLayout formats the default date.
const DateLayout = "January 2, 2006"

// View is the bound, escaped set of values a certificate displays.
type View struct {
	Name       Text `json:"name"`
	Course     Text `json:"course"`
	Identifier Text `json:"identifier"`
	Date       Text `json:"date"`
}

// Binder binds records to views.
type Binder struct {
	now        func() time.Time
	dateLayout string
}

// BinderOption configures a Binder.
type BinderOption func(*Binder)

// WithClock sets the clock used for the default date.
func WithClock(now func() time.Time) BinderOption {
	return func(b *Binder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithDateLayout sets the layout of the default date.
func WithDateLayout(layout string) BinderOption {
	return func(b *Binder) {
		if layout != "" {
			b.dateLayout = layout
		}
	}
}

// NewBinder creates a Binder that uses the wall clock.
func NewBinder(opts ...BinderOption) *Binder {
	b := &Binder{now: time.Now, dateLayout: DateLayout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bind reads each role's cell from record, unmodified, and escapes it. Blank
// (whitespace-only) cells and unresolved roles take the role's default. The
// date default is the current date, computed on every call.
func (b *Binder) Bind(record sheet.Record, roles ColumnRoleMap) View {
	return View{
		Name:       bindField(record, roles, RoleName, DefaultName),
		Course:     bindField(record, roles, RoleCourse, DefaultCourse),
		Identifier: bindField(record, roles, RoleIdentifier, DefaultIdentifier),
		Date:       bindField(record, roles, RoleDate, b.now().Format(b.dateLayout)),
	}
}

// Now returns the binder's current time.
func (b *Binder) Now() time.Time {
	return b.now()
}

func bindField(record sheet.Record, roles ColumnRoleMap, role Role, fallback string) Text {
	col, ok := roles.Column(role)
	if !ok {
		return escapeText(fallback)
	}
	// Whitespace decides blankness only; the cell is bound as stored, the
	// same value FindRecord compared against.
	v := record.Get(col)
	if strings.TrimSpace(v) == "" {
		return escapeText(fallback)
	}
	return escapeText(v)
}
