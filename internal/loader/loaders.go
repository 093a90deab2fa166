package loader

import (
	"context"

	"github.com/TimurManjosov/abconsole/internal/model"
	"golang.org/x/sync/errgroup"
)

// ExperimentsAPI is the part of the client the experiment loaders need.
type ExperimentsAPI interface {
	ListExperiments(ctx context.Context) ([]model.Experiment, error)
	GetExperiment(ctx context.Context, id string) (*model.Experiment, error)
	GetExperimentStats(ctx context.Context, id string) (*model.ExperimentStats, error)
}

// AssignmentsAPI is the part of the client the assignment loader needs.
type AssignmentsAPI interface {
	GetAssignment(ctx context.Context, experimentID, userID string) (*model.Assignment, error)
}

// ExperimentsLoader loads the experiment list. It starts in the loading state.
type ExperimentsLoader struct {
	*Resource[[]model.Experiment]
}

func NewExperimentsLoader(api ExperimentsAPI) *ExperimentsLoader {
	return &ExperimentsLoader{
		Resource: NewResource[[]model.Experiment]("experiments", "Failed to load experiments", true,
			func(ctx context.Context) ([]model.Experiment, error) {
				return api.ListExperiments(ctx)
			}),
	}
}

// Detail is an experiment together with its stats.
type Detail struct {
	Experiment *model.Experiment
	Stats      *model.ExperimentStats
}

// ExperimentDetailLoader loads an experiment and its stats concurrently.
// Both must succeed for the result to commit.
type ExperimentDetailLoader struct {
	*Keyed[string, Detail]
}

func NewExperimentDetailLoader(api ExperimentsAPI) *ExperimentDetailLoader {
	return &ExperimentDetailLoader{
		Keyed: NewKeyed[string, Detail]("experiment_detail", "Failed to load experiment", true, nil,
			func(ctx context.Context, id string) (Detail, error) {
				var d Detail
				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error {
					exp, err := api.GetExperiment(ctx, id)
					d.Experiment = exp
					return err
				})
				g.Go(func() error {
					st, err := api.GetExperimentStats(ctx, id)
					d.Stats = st
					return err
				})
				if err := g.Wait(); err != nil {
					return Detail{}, err
				}
				return d, nil
			}),
	}
}

// ExperimentMetricsLoader loads only the stats of an experiment. It is
// on-demand and starts idle.
type ExperimentMetricsLoader struct {
	*Keyed[string, *model.ExperimentStats]
}

func NewExperimentMetricsLoader(api ExperimentsAPI) *ExperimentMetricsLoader {
	return &ExperimentMetricsLoader{
		Keyed: NewKeyed[string, *model.ExperimentStats]("experiment_metrics", "Failed to load metrics", false, nil,
			func(ctx context.Context, id string) (*model.ExperimentStats, error) {
				return api.GetExperimentStats(ctx, id)
			}),
	}
}

// AssignmentKey identifies one user in one experiment.
type AssignmentKey struct {
	ExperimentID string
	UserID       string
}

// AssignmentLoader resolves which variant a user sees. A nil Data with no
// error means the user has not been assigned yet.
type AssignmentLoader struct {
	*Keyed[AssignmentKey, *model.Assignment]
}

func NewAssignmentLoader(api AssignmentsAPI) *AssignmentLoader {
	ready := func(k AssignmentKey) bool {
		return k.ExperimentID != "" && k.UserID != ""
	}
	return &AssignmentLoader{
		Keyed: NewKeyed[AssignmentKey, *model.Assignment]("assignment", "Failed to load assignment", false, ready,
			func(ctx context.Context, k AssignmentKey) (*model.Assignment, error) {
				return api.GetAssignment(ctx, k.ExperimentID, k.UserID)
			}),
	}
}
