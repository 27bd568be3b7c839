package services

import (
	"context"
	"time"

	"github.com/dfliao/redmine-report/internal/config"
	"github.com/dfliao/redmine-report/internal/domain"
	"github.com/rs/zerolog"
)

// SpecialProjects computes the identifier set of the special project
// family: the designated root plus everything transitively below it.
// Children can be listed before their parents, so the closure runs to a
// fixpoint; iterations are bounded by the project count, which also makes
// malformed or cyclic parent links terminate.
func SpecialProjects(projects []domain.Project, rootID int64) map[int64]struct{} {
	set := map[int64]struct{}{rootID: {}}
	for pass := 0; pass < len(projects); pass++ {
		added := false
		for _, p := range projects {
			if _, ok := set[p.ID]; ok { continue }
			if p.Parent == nil { continue }
			if _, ok := set[p.Parent.ID]; ok {
				set[p.ID] = struct{}{}
				added = true
			}
		}
		if !added { break }
	}
	return set
}

type projectLister interface {
	Projects(ctx context.Context) ([]domain.Project, error)
}

// ResolveSpecialProjects fetches the project list once at startup and
// returns the immutable family set. When the root is configured by name
// its identifier is looked up in the same list. A fetch failure degrades
// to the singleton root so the rest of the pipeline keeps working with
// partial exclusion.
func ResolveSpecialProjects(ctx context.Context, rm projectLister, spec config.SpecialProjectSpec, log zerolog.Logger) map[int64]struct{} {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	projects, err := rm.Projects(ctx)
	if err != nil {
		log.Error().Err(err).Int64("root", spec.ID).Str("name", spec.Name).
			Msg("special projects: fetch failed, falling back to root only")
		return map[int64]struct{}{spec.ID: {}}
	}

	rootID := spec.ID
	if rootID == 0 && spec.Name != "" {
		for _, p := range projects {
			if p.Name == spec.Name {
				rootID = p.ID
				break
			}
		}
		if rootID == 0 {
			log.Warn().Str("name", spec.Name).Msg("special projects: root not found by name")
		}
	}

	set := SpecialProjects(projects, rootID)
	log.Info().Int64("root", rootID).Int("members", len(set)).Msg("special projects resolved")
	return set
}
