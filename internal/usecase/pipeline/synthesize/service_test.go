package synthesize_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/usecase/pipeline/synthesize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	members []*entity.SourceItem
}

func (r *stubRepo) Insert(context.Context, *entity.SourceItem) error { return nil }
func (r *stubRepo) Get(context.Context, int64) (*entity.SourceItem, error) { return nil, nil }
func (r *stubRepo) ListUnscored(context.Context, int) ([]*entity.SourceItem, error) { return nil, nil }
func (r *stubRepo) ListApprovedUnclustered(context.Context, int) ([]*entity.SourceItem, error) {
	return nil, nil
}
func (r *stubRepo) ListByCluster(context.Context, int64) ([]*entity.SourceItem, error) {
	return r.members, nil
}
func (r *stubRepo) UpdateScore(context.Context, int64, int, string, string, bool) error { return nil }
func (r *stubRepo) AttachToCluster(context.Context, int64, int64) error                 { return nil }
func (r *stubRepo) UpdateFullText(context.Context, int64, string, bool) error           { return nil }
func (r *stubRepo) MarkConsumed(context.Context, int64) error                           { return nil }

type stubSynthesizer struct {
	outputs []*capability.SynthesisOutput
	errs    []error
	calls   int
}

func (s *stubSynthesizer) Synthesize(context.Context, []capability.SourcePackage) (*capability.SynthesisOutput, error) {
	i := s.calls
	s.calls++
	var out *capability.SynthesisOutput
	var err error
	if i < len(s.outputs) {
		out = s.outputs[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return out, err
}

func validOutput() *capability.SynthesisOutput {
	bullet := strings.Repeat("word ", 20)
	para := strings.Repeat("word ", 50)
	body := strings.Join([]string{para, para, para, para, para}, "\n\n")
	return &capability.SynthesisOutput{
		TitlePro:      "A Title",
		TitleSimple:   "Simple Title",
		BulletsPro:    []string{bullet, bullet, bullet},
		BulletsSimple: []string{bullet, bullet, bullet},
		BodyPro:       body,
		BodySimple:    body,
		Category:      "politics",
	}
}

func TestService_Synthesize_ReturnsValidOutputOnFirstAttempt(t *testing.T) {
	repo := &stubRepo{members: []*entity.SourceItem{{ID: 1, Title: "A", Source: "Wire"}}}
	synth := &stubSynthesizer{outputs: []*capability.SynthesisOutput{validOutput()}}

	svc := synthesize.NewService(repo, synth)
	out, err := svc.Synthesize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A Title", out.TitlePro)
	assert.Equal(t, 1, synth.calls)
}

func TestService_Synthesize_RetriesOnValidationFailureThenSucceeds(t *testing.T) {
	repo := &stubRepo{members: []*entity.SourceItem{{ID: 1, Title: "A", Source: "Wire"}}}
	invalid := &capability.SynthesisOutput{TitlePro: "X", TitleSimple: "Y", BulletsPro: []string{"too short"}}
	synth := &stubSynthesizer{outputs: []*capability.SynthesisOutput{invalid, validOutput()}}

	svc := synthesize.NewService(repo, synth)
	svc.RetryBaseDelay = time.Millisecond
	out, err := svc.Synthesize(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "A Title", out.TitlePro)
	assert.Equal(t, 2, synth.calls)
}

func TestService_Synthesize_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := &stubRepo{members: []*entity.SourceItem{{ID: 1, Title: "A", Source: "Wire"}}}
	synth := &stubSynthesizer{errs: []error{errors.New("x"), errors.New("x"), errors.New("x")}}

	svc := synthesize.NewService(repo, synth)
	svc.RetryBaseDelay = time.Millisecond
	_, err := svc.Synthesize(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, 3, synth.calls)
	var failure *capability.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, capability.InvalidOutput, failure.Kind)
}

func TestValidate_RejectsWrongBulletCount(t *testing.T) {
	out := validOutput()
	out.BulletsPro = out.BulletsPro[:2]
	err := synthesize.Validate(out)
	require.Error(t, err)
}

func TestValidate_RejectsWrongParagraphCount(t *testing.T) {
	out := validOutput()
	out.BodyPro = strings.ReplaceAll(out.BodyPro, "\n\n", " ")
	err := synthesize.Validate(out)
	require.Error(t, err)
}

func TestPackageSources_IncludesLowTextOnlyToReachMinimum(t *testing.T) {
	members := []*entity.SourceItem{
		{ID: 1, Title: "Only Source", FullText: "real text", LowText: false, Score: intPtr(800)},
		{ID: 2, Title: "Low Text Source", LowText: true, Score: intPtr(600)},
	}
	pkgs := synthesize.PackageSources(members)
	assert.Len(t, pkgs, 2)
}

func intPtr(n int) *int { return &n }
