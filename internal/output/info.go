package output

import (
	"fmt"
	"io"
	"time"

	"github.com/blackwell-systems/neix/internal/store"
	"github.com/dustin/go-humanize"
)

// IndexSummary is everything the info command shows.
type IndexSummary struct {
	DBPath       string
	Info         *store.Info
	VersionOrder store.VersionOrder
	Backups      int
	LastBackup   time.Time
}

// RenderInfo writes a key/value summary of the index.
func RenderInfo(w io.Writer, s IndexSummary, st Styles) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", st.paint(st.Label, fmt.Sprintf("%-14s", label+":")), value)
	}

	row("Database", s.DBPath)
	row("Packages", st.paint(st.Count, humanize.Comma(int64(s.Info.Packages))))
	row("Names", humanize.Comma(int64(s.Info.Names)))

	if s.Info.IndexedAt.IsZero() {
		row("Last update", st.paint(st.Dim, "never"))
	} else {
		row("Last update", fmt.Sprintf("%s (%s)",
			humanize.Time(s.Info.IndexedAt),
			s.Info.IndexedAt.Local().Format("2006-01-02 15:04:05")))
	}
	if s.Info.Source != "" {
		row("Source", s.Info.Source)
		row("Last snapshot", humanize.Comma(int64(s.Info.LastSnapshot))+" packages")
	}
	row("Version order", string(s.VersionOrder))

	if s.Backups == 0 {
		row("Backups", st.paint(st.Dim, "none"))
	} else {
		row("Backups", fmt.Sprintf("%d (latest %s)", s.Backups, humanize.Time(s.LastBackup)))
	}
}
