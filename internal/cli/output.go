package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	scenepart "github.com/arloliu/scenepart"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// jobReport summarizes a finished run from the master's point of view.
type jobReport struct {
	Session     string       `json:"session"`
	Ranks       int          `json:"ranks"`
	Groups      int          `json:"groups"`
	Strategy    string       `json:"strategy"`
	PassiveHead bool         `json:"passive_head"`
	BoundsMin   [3]float32   `json:"bounds_min"`
	BoundsMax   [3]float32   `json:"bounds_max"`
	Frames      int          `json:"frames"`
	Sentinel    uint32       `json:"sentinel"`
	Screenshot  string       `json:"screenshot,omitempty"`
	Assignment  []groupEntry `json:"assignment"`
}

type groupEntry struct {
	scenepart.GroupSummary
	Items int `json:"item_count"`
}

func newJobReport(node *scenepart.Node, cfg *scenepart.Config) *jobReport {
	b := node.Bounds()
	r := &jobReport{
		Ranks:       node.Size(),
		Groups:      cfg.Groups,
		Strategy:    cfg.Strategy,
		PassiveHead: cfg.PassiveHead,
		BoundsMin:   [3]float32{b.Box.Min.X, b.Box.Min.Y, b.Box.Min.Z},
		BoundsMax:   [3]float32{b.Box.Max.X, b.Box.Max.Y, b.Box.Max.Z},
	}
	for _, g := range node.Assignment() {
		r.Assignment = append(r.Assignment, groupEntry{GroupSummary: g, Items: len(g.Items)})
	}

	return r
}

// Text writes s verbatim in text mode and as a message object in JSON mode.
func (f *OutputFormatter) Text(s string) error {
	if f.Format == "json" {
		return f.json(map[string]string{"status": "ok", "message": s})
	}

	_, err := io.WriteString(f.Writer, s)

	return err
}

// Report writes a job report.
func (f *OutputFormatter) Report(r *jobReport) error {
	if f.Format == "json" {
		return f.json(r)
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "session:\t%s\n", r.Session)
	fmt.Fprintf(tw, "ranks:\t%d\n", r.Ranks)
	fmt.Fprintf(tw, "groups:\t%d (%s)\n", r.Groups, r.Strategy)
	fmt.Fprintf(tw, "bounds:\t%v .. %v\n", r.BoundsMin, r.BoundsMax)
	fmt.Fprintf(tw, "frames:\t%d\n", r.Frames)
	fmt.Fprintf(tw, "sentinel:\t%#08x\n", r.Sentinel)
	if r.Screenshot != "" {
		fmt.Fprintf(tw, "screenshot:\t%s\n", r.Screenshot)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	return f.groups(r.Assignment)
}

// Plan writes an assignment plan with each group's owning ranks.
func (f *OutputFormatter) Plan(p *planReport) error {
	if f.Format == "json" {
		return f.json(p)
	}

	fmt.Fprintf(f.Writer, "strategy %s, %d items over %d groups, %d workers\n",
		p.Strategy, p.Items, len(p.Groups), p.Workers)
	fmt.Fprintf(f.Writer, "group cost spread %.1f .. %.1f (total %.1f)\n", p.MinCost, p.MaxCost, p.TotalCost)

	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOST\tITEMS\tRANKS")
	for _, g := range p.Groups {
		fmt.Fprintf(tw, "%d\t%.1f\t%d\t%v\n", g.ID, g.Cost, len(g.Items), g.Ranks)
	}

	return tw.Flush()
}

func (f *OutputFormatter) groups(groups []groupEntry) error {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOST\tITEMS")
	for _, g := range groups {
		fmt.Fprintf(tw, "%d\t%.1f\t%d\n", g.ID, g.Cost, g.Items)
	}

	return tw.Flush()
}

func (f *OutputFormatter) json(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
