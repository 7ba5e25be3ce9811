package pipeline

import (
	"context"

	"github.com/conneroisu/mailwright/internal/catalog"
	"github.com/conneroisu/mailwright/internal/data"
)

// Stage names.
const (
	StageClean           = "clean"
	StageLoadData        = "load-data"
	StageScanCatalog     = "scan-catalog"
	StageRenderPreview   = "render-preview"
	StageRenderTemplates = "render-templates"
	StageCompileMJML     = "compile-mjml"
	StageOptimizeImages  = "optimize-images"
	StagePackage         = "package"
)

// Sequence names.
const (
	SequenceCore            = "core"
	SequenceBuildStandard   = "buildStandard"
	SequenceBuildResponsive = "buildResponsive"
	SequencePackage         = "package"
)

// State is the context one sequence run builds up. Stages read what earlier
// stages stored.
type State struct {
	BuildID string
	Table   data.Table
	Catalog []catalog.Entry
}

// Stage is one named unit of work.
type Stage struct {
	Name string
	Run  func(ctx context.Context, st *State) error
}

// Sequence is an ordered list of stages.
type Sequence struct {
	Name   string
	Stages []Stage
}

// Names returns the stage names in order.
func (s Sequence) Names() []string {
	names := make([]string, len(s.Stages))
	for i, st := range s.Stages {
		names[i] = st.Name
	}
	return names
}

// then returns a copy of s extended with stages under a new name.
func (s Sequence) then(name string, stages ...Stage) Sequence {
	out := make([]Stage, 0, len(s.Stages)+len(stages))
	out = append(out, s.Stages...)
	out = append(out, stages...)
	return Sequence{Name: name, Stages: out}
}
