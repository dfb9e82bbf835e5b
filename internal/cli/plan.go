package cli

import (
	"github.com/spf13/cobra"

	scenepart "github.com/arloliu/scenepart"
	"github.com/arloliu/scenepart/internal/assignment"
	"github.com/arloliu/scenepart/strategy"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	Ranks int
	Scene SceneOptions
}

type planGroup struct {
	scenepart.GroupSummary
	Ranks []int `json:"ranks"`
}

type planReport struct {
	Strategy    string      `json:"strategy"`
	Items       int         `json:"items"`
	Workers     int         `json:"workers"`
	TotalCost   float64     `json:"total_cost"`
	MinCost     float64     `json:"min_cost"`
	MaxCost     float64     `json:"max_cost"`
	Fingerprint uint64      `json:"fingerprint"`
	Groups      []planGroup `json:"groups"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the assignment of the demo scene without loading it",
		Long: `Compute the content-to-group assignment and the group-to-rank mapping the
run command would use, and print per-group costs.

Example:
  scenepart plan --ranks 4 --groups 8
  scenepart plan --ranks 3 --groups 4 --allow-partial-mapping --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.Ranks, "ranks", 1, "world size to map groups onto")
	f.Int("groups", 0, "number of data groups (overrides config)")
	f.String("strategy", "", "assignment strategy: lpt|round_robin|consistent_hash (overrides config)")
	f.Bool("passive-head", false, "keep the master rank out of data ownership")
	f.Bool("allow-partial-mapping", false, "accept group counts that are not a multiple of the worker count")

	f.IntVar(&opts.Scene.Spheres, "spheres", 4096, "spheres in the demo scene")
	f.IntVar(&opts.Scene.SphereShards, "sphere-shards", 16, "content items the sphere set is split into")
	f.IntVar(&opts.Scene.VolumeDim, "volume-dim", 32, "voxels per axis of the demo volume, 0 disables it")
	f.IntVar(&opts.Scene.VolumeShards, "volume-shards", 8, "content items the volume is split into")

	return cmd
}

func runPlan(cmd *cobra.Command, opts *PlanOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Ranks < 1 {
		return NewExitError(ExitCommandError, "--ranks must be positive")
	}

	report, err := buildPlan(cmd, cfg, opts)
	if err != nil {
		return err
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	return out.Plan(report)
}

func buildPlan(cmd *cobra.Command, cfg *scenepart.Config, opts *PlanOptions) (*planReport, error) {
	registry, err := syntheticScene(opts.Scene)
	if err != nil {
		return nil, err
	}
	contents, err := registry.ListContent(cmd.Context())
	if err != nil {
		return nil, err
	}

	s, err := strategy.New(cfg.Strategy)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid strategy", err)
	}
	plan, err := assignment.NewPlan(contents, cfg.Groups, s, nil)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "assignment failed", err)
	}

	workers := opts.Ranks
	firstWorker := 0
	if cfg.PassiveHead && opts.Ranks > 1 {
		workers--
		firstWorker = 1
	}

	owners := make([][]int, plan.NumGroups())
	for w := range workers {
		owned, err := assignment.OwnedGroups(w, workers, cfg.Groups, cfg.AllowPartialMapping, nil)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "unsupported mapping", err)
		}
		for _, id := range owned {
			owners[id] = append(owners[id], firstWorker+w)
		}
	}

	lo, hi := plan.Spread()
	report := &planReport{
		Strategy:    plan.Strategy(),
		Items:       len(contents),
		Workers:     workers,
		TotalCost:   registry.TotalCost(),
		MinCost:     lo,
		MaxCost:     hi,
		Fingerprint: plan.Fingerprint(),
	}
	for _, g := range plan.Summary() {
		report.Groups = append(report.Groups, planGroup{GroupSummary: g, Ranks: owners[g.ID]})
	}

	return report, nil
}
