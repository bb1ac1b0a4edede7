package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/and161185/wordshelf/internal/model"
)

func printPage(w io.Writer, st model.CollectionState[model.SavedItem]) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tFOLDER\tSTATUS\tTEXT")
	for i, it := range st.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, it.ID, it.Folder, it.Status, truncate(it.Text, 60))
	}
	_ = tw.Flush()

	if st.Total == 0 || st.Limit <= 0 {
		fmt.Fprintln(w, "(no items)")
		return
	}
	last := min(st.Offset+len(st.Items), st.Total)
	fmt.Fprintf(w, "%d-%d of %d (page %d/%d)\n",
		st.Offset+1, last, st.Total, st.Offset/st.Limit+1, (st.Total+st.Limit-1)/st.Limit)
}

// printPages prints the pages appended since the first `from` and returns the new count.
func printPages(w io.Writer, st model.FeedState[model.PDFPage], from int) int {
	for _, p := range st.Items[min(from, len(st.Items)):] {
		fmt.Fprintf(w, "--- page %d ---\n%s\n", p.Number, p.Text)
	}
	return len(st.Items)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
