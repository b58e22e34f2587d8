package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"arenagrid.ai/internal/persistence/indexdb"
	"arenagrid.ai/internal/persistence/journal"
)

func main() {
	var (
		dir     = flag.String("dir", "", "journal directory containing calls-*.jsonl.zst")
		index   = flag.String("index_db", "", "summarize from the sqlite index instead (optional)")
		session = flag.String("session", "", "restrict to one session id (optional)")
	)
	flag.Parse()

	if *dir == "" && *index == "" {
		fmt.Fprintln(os.Stderr, "missing -dir or -index_db")
		os.Exit(2)
	}

	if *index != "" {
		if err := fromIndex(*index, strings.TrimSpace(*session)); err != nil {
			fmt.Fprintln(os.Stderr, "index:", err)
			os.Exit(1)
		}
		return
	}

	files, err := journal.ListFiles(*dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list journal:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files found in", *dir)
		os.Exit(1)
	}

	sum := journal.NewSummary()
	entries := 0
	for _, path := range files {
		err := journal.ReadFile(path, func(e journal.Entry) error {
			if *session != "" && e.Session != *session {
				return nil
			}
			entries++
			sum.Add(e)
			return nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("files=%d entries=%d sessions=%d\n", len(files), entries, len(sum.Sessions))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tCALLS\tERRORS\tDROPPED\tAVG_US\tCODES")
	for _, op := range sum.OpNames() {
		st := sum.Ops[op]
		avg := 0.0
		if st.Calls > 0 {
			avg = float64(st.Micros) / float64(st.Calls)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\t%s\n", op, st.Calls, st.Errors, st.Dropped, avg, formatCodes(st.Codes))
	}
	_ = tw.Flush()
}

func fromIndex(path, session string) error {
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	sessions, err := idx.Sessions(ctx)
	if err != nil {
		return err
	}
	rows, err := idx.Summarize(ctx, session)
	if err != nil {
		return err
	}
	fmt.Printf("index=%s sessions=%d\n", path, len(sessions))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "OP\tCALLS\tERRORS\tDROPPED\tAVG_US")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\n", r.Op, r.Calls, r.Errors, r.Dropped, r.AvgMicros)
	}
	return tw.Flush()
}

func formatCodes(codes map[string]int) string {
	if len(codes) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(codes))
	for c, n := range codes {
		if c == "" {
			c = "?"
		}
		parts = append(parts, fmt.Sprintf("%s=%d", c, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
