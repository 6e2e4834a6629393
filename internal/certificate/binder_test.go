package certificate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

func fixedBinder() *Binder {
	return NewBinder(WithClock(func() time.Time { return fixedNow }))
}

func TestBinder_Bind(t *testing.T) {
	roles := ColumnRoleMap{
		RoleIdentifier: "Cert ID",
		RoleName:       "Full Name",
		RoleCourse:     "Course Name",
		RoleDate:       "Date",
	}

	tests := []struct {
		name   string
		record sheet.Record
		roles  ColumnRoleMap
		want   [4]string // name, course, identifier, date
	}{
		{
			name:   "all fields present",
			record: sheet.Record{"Cert ID": "C100", "Full Name": "Asha Rao", "Course Name": "Data Structures", "Date": "2024-01-10"},
			roles:  roles,
			want:   [4]string{"Asha Rao", "Data Structures", "C100", "2024-01-10"},
		},
		{
			name:   "blank cells take defaults",
			record: sheet.Record{"Cert ID": "C101", "Full Name": "", "Course Name": "  ", "Date": ""},
			roles:  roles,
			want:   [4]string{DefaultName, DefaultCourse, "C101", "March 5, 2024"},
		},
		{
			name:   "unresolved roles take defaults",
			record: sheet.Record{"Cert ID": "C102"},
			roles:  ColumnRoleMap{RoleIdentifier: "Cert ID"},
			want:   [4]string{DefaultName, DefaultCourse, "C102", "March 5, 2024"},
		},
		{
			name:   "nothing resolved",
			record: sheet.Record{},
			roles:  ColumnRoleMap{},
			want:   [4]string{DefaultName, DefaultCourse, DefaultIdentifier, "March 5, 2024"},
		},
		{
			name:   "values are bound as stored",
			record: sheet.Record{"Cert ID": " C103", "Full Name": "  Ann Lee  "},
			roles:  roles,
			want:   [4]string{"  Ann Lee  ", DefaultCourse, " C103", "March 5, 2024"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := fixedBinder().Bind(tt.record, tt.roles)
			got := [4]string{v.Name.Plain(), v.Course.Plain(), v.Identifier.Plain(), v.Date.Plain()}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBinder_EscapesMarkup(t *testing.T) {
	record := sheet.Record{
		"ID":     `C1"><img src=x onerror=alert(1)>`,
		"Name":   "<script>x</script>",
		"Course": "R&D <b>101</b>",
	}
	roles := ColumnRoleMap{RoleIdentifier: "ID", RoleName: "Name", RoleCourse: "Course"}

	v := fixedBinder().Bind(record, roles)

	assert.Equal(t, "<script>x</script>", v.Name.Plain())
	assert.Equal(t, "&lt;script&gt;x&lt;/script&gt;", v.Name.HTML())
	assert.Equal(t, "R&amp;D &lt;b&gt;101&lt;/b&gt;", v.Course.HTML())
	assert.NotContains(t, v.Identifier.HTML(), "<")
	assert.NotContains(t, v.Identifier.HTML(), `"`)
}

func TestBinder_DefaultDateUsesBindTime(t *testing.T) {
	now := fixedNow
	b := NewBinder(WithClock(func() time.Time { return now }))

	first := b.Bind(sheet.Record{}, ColumnRoleMap{})
	now = now.AddDate(0, 0, 1)
	second := b.Bind(sheet.Record{}, ColumnRoleMap{})

	assert.Equal(t, "March 5, 2024", first.Date.Plain())
	assert.Equal(t, "March 6, 2024", second.Date.Plain())
}

func TestBinder_DateLayout(t *testing.T) {
	b := NewBinder(WithClock(func() time.Time { return fixedNow }), WithDateLayout("2006-01-02"))
	v := b.Bind(sheet.Record{}, ColumnRoleMap{})
	assert.Equal(t, "2024-03-05", v.Date.Plain())
}

func TestBind_RoundTripIdentifier(t *testing.T) {
	table := scenarioTable()
	records := table.Records()
	roles := ResolveColumns(table.Headers)

	for _, q := range []string{"C100", "C101"} {
		rec, ok := FindRecord(records, roles, q)
		require.True(t, ok, q)
		assert.Equal(t, q, fixedBinder().Bind(rec, roles).Identifier.Plain())
	}
}

func TestBind_RoundTripPaddedIdentifier(t *testing.T) {
	records := []sheet.Record{{"ID": " C200", "Name": "Lee"}}
	roles := ColumnRoleMap{RoleIdentifier: "ID", RoleName: "Name"}

	rec, ok := FindRecord(records, roles, " C200")
	require.True(t, ok)
	assert.Equal(t, " C200", fixedBinder().Bind(rec, roles).Identifier.Plain())
}

func TestText_JSONUsesPlainValue(t *testing.T) {
	v := View{Name: escapeText("<b>Ann</b>")}

	data, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "<b>Ann</b>", decoded["name"])
	assert.Equal(t, "", decoded["course"])
}

func TestText_Zero(t *testing.T) {
	var zero Text
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", zero.HTML())
	assert.False(t, escapeText("x").IsZero())
}
