package issues

import (
	"strconv"
	"strings"
)

const csvSeparator = ";"

// CSVHeader returns the header line matching CSV.
func CSVHeader() string {
	return "# id;rule;type;severity;status;creation date;creation time;modification date;" +
		"modification time;project key;project name;file;line;debt(min);message"
}

// CSV renders the issue as one semicolon separated line. The message is
// always quoted and embedded quotes are doubled.
func (i *Issue) CSV() string {
	cdate, ctime := splitTimestamp(i.CreationDate)
	mdate, mtime := splitTimestamp(i.UpdateDate)

	line := "-"
	if i.Line != nil {
		line = strconv.Itoa(*i.Line)
	}

	fields := []string{
		i.Key, i.Rule, i.Type, i.Severity, i.Status,
		cdate, ctime, mdate, mtime,
		i.Project, i.ProjectName, i.Component, line,
		strconv.Itoa(DebtMinutes(i.Debt)),
		`"` + strings.ReplaceAll(i.Message, `"`, `""`) + `"`,
	}
	return strings.Join(fields, csvSeparator)
}

// splitTimestamp splits 2021-03-04T10:11:12+0100 into date and time, dropping a positive zone offset.
func splitTimestamp(ts string) (string, string) {
	date, clock, found := strings.Cut(ts, "T")
	if !found {
		return date, ""
	}
	if idx := strings.Index(clock, "+"); idx >= 0 {
		clock = clock[:idx]
	}
	return date, clock
}
