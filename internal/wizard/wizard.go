// Package wizard drives the two-step submission flow: pick grade and name,
// confirm the pledge, then record and upload. It is UI-agnostic so the same
// machine runs under the kiosk terminal front end and in tests.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pledgecam/pledgecam-api/internal/capture"
	"github.com/pledgecam/pledgecam-api/internal/client"
)

// Step identifies the wizard position.
type Step int

const (
	StepSelect Step = iota + 1
	StepPledge
)

// API is the slice of the server client the wizard needs.
type API interface {
	ListNotSubmitted(ctx context.Context, grade string) ([]client.Student, error)
	PledgeByCode(ctx context.Context, code string) (*client.Pledge, error)
	UploadVideo(ctx context.Context, sub client.Submission) (*client.UploadResult, error)
}

// captureSession is what the wizard needs from the recording engine: the
// ability to release hardware when the user navigates away.
type captureSession interface {
	Teardown()
}

var (
	// ErrRosterLoading rejects selections while a grade fetch is in flight.
	ErrRosterLoading = errors.New("wizard: roster still loading")
	// ErrUnknownName rejects a name not on the loaded roster.
	ErrUnknownName = errors.New("wizard: name not on roster")
	// ErrMissingCelebrity rejects advancing without a nomination.
	ErrMissingCelebrity = errors.New("wizard: celebrity is required")
	// ErrWrongStep rejects operations issued out of sequence.
	ErrWrongStep = errors.New("wizard: operation not valid at this step")
)

// Selection is the resolved student plus nomination carried into step two.
type Selection struct {
	Student   client.Student
	Celebrity string
}

// Wizard is the two-step submission state machine. All methods are safe for
// concurrent use.
type Wizard struct {
	api        API
	logger     *zap.Logger
	onComplete func()

	mu          sync.Mutex
	step        Step
	grade       string
	roster      []client.Student
	rosterCache map[string][]client.Student
	loading     bool
	fetchSeq    uint64
	selection   *Selection
	composed    string
	capture     captureSession
}

// New builds a wizard at step one. onComplete fires after a successful
// upload, before the wizard resets.
func New(api API, logger *zap.Logger, onComplete func()) *Wizard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wizard{
		api:         api,
		logger:      logger,
		onComplete:  onComplete,
		step:        StepSelect,
		rosterCache: make(map[string][]client.Student),
	}
}

// AttachCapture registers the recording engine so Back and Close can release
// the camera.
func (w *Wizard) AttachCapture(session captureSession) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capture = session
}

// Step returns the current wizard position.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Loading reports whether a roster fetch is in flight.
func (w *Wizard) Loading() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loading
}

// Names lists the currently loaded roster names in server order.
func (w *Wizard) Names() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	names := make([]string, 0, len(w.roster))
	for _, s := range w.roster {
		names = append(names, s.Name)
	}
	return names
}

// SelectGrade loads the not-yet-submitted roster for a grade and clears any
// prior name choice. A later SelectGrade supersedes an earlier in-flight
// fetch, whose result is discarded when it lands.
func (w *Wizard) SelectGrade(ctx context.Context, grade string) error {
	if strings.TrimSpace(grade) == "" {
		return fmt.Errorf("wizard: grade is required")
	}

	w.mu.Lock()
	if w.step != StepSelect {
		w.mu.Unlock()
		return ErrWrongStep
	}
	w.grade = grade
	w.roster = nil
	w.selection = nil
	if cached, ok := w.rosterCache[grade]; ok {
		// A cached selection still supersedes any in-flight fetch for a
		// previously selected grade, so a late response cannot land.
		w.fetchSeq++
		w.roster = cached
		w.loading = false
		w.mu.Unlock()
		return nil
	}
	w.fetchSeq++
	seq := w.fetchSeq
	w.loading = true
	w.mu.Unlock()

	students, err := w.api.ListNotSubmitted(ctx, grade)

	w.mu.Lock()
	defer w.mu.Unlock()
	if seq != w.fetchSeq {
		// A newer grade selection is in flight; this result is stale.
		return nil
	}
	w.loading = false
	if err != nil {
		return fmt.Errorf("load roster for grade %s: %w", grade, err)
	}
	w.roster = students
	w.rosterCache[grade] = students
	return nil
}

// SubmitStep1 resolves the name against the loaded roster, fetches the
// pledge text, and advances to step two. Any failure leaves the wizard at
// step one.
func (w *Wizard) SubmitStep1(ctx context.Context, name, celebrity string) error {
	w.mu.Lock()
	if w.step != StepSelect {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if w.loading {
		w.mu.Unlock()
		return ErrRosterLoading
	}
	if strings.TrimSpace(celebrity) == "" {
		w.mu.Unlock()
		return ErrMissingCelebrity
	}
	var student *client.Student
	for i := range w.roster {
		if w.roster[i].Name == name {
			student = &w.roster[i]
			break
		}
	}
	w.mu.Unlock()

	if student == nil {
		return ErrUnknownName
	}

	pledge, err := w.api.PledgeByCode(ctx, student.PledgeCode)
	if err != nil {
		return fmt.Errorf("load pledge %s: %w", student.PledgeCode, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelect {
		return ErrWrongStep
	}
	w.selection = &Selection{Student: *student, Celebrity: celebrity}
	w.composed = ComposePledge(student.Name, pledge.PledgeText, celebrity)
	w.step = StepPledge
	return nil
}

// ComposePledge renders the personalized pledge text shown before recording.
func ComposePledge(name, pledgeText, celebrity string) string {
	return fmt.Sprintf("I, %s, pledge to, %s\n\nI nominate %s to take this pledge with me.",
		name, pledgeText, celebrity)
}

// ComposedText returns the personalized pledge while at step two.
func (w *Wizard) ComposedText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepPledge {
		return ""
	}
	return w.composed
}

// Selected returns the resolved student and celebrity while at step two.
func (w *Wizard) Selected() *Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selection == nil {
		return nil
	}
	sel := *w.selection
	return &sel
}

// Back returns to step one, releasing any live recording. The grade and
// roster are retained so the user lands where they left off.
func (w *Wizard) Back() {
	w.mu.Lock()
	session := w.capture
	w.selection = nil
	w.composed = ""
	w.step = StepSelect
	w.mu.Unlock()

	if session != nil {
		session.Teardown()
	}
}

// Close abandons the session entirely: camera released, all state cleared.
func (w *Wizard) Close() {
	w.mu.Lock()
	session := w.capture
	w.grade = ""
	w.roster = nil
	w.rosterCache = make(map[string][]client.Student)
	w.selection = nil
	w.composed = ""
	w.loading = false
	w.step = StepSelect
	w.mu.Unlock()

	if session != nil {
		session.Teardown()
	}
}

// Upload posts the finished recording for the step-two selection. On success
// the cached roster for the submitted grade is dropped, onComplete fires, and
// the wizard resets. On failure the wizard stays at step two so the user can
// retry without re-entering anything.
func (w *Wizard) Upload(ctx context.Context, artifact *capture.Artifact) error {
	w.mu.Lock()
	if w.step != StepPledge || w.selection == nil {
		w.mu.Unlock()
		return ErrWrongStep
	}
	if artifact == nil || len(artifact.Data) == 0 {
		w.mu.Unlock()
		return fmt.Errorf("wizard: no recording to upload")
	}
	sel := *w.selection
	w.mu.Unlock()

	result, err := w.api.UploadVideo(ctx, client.Submission{
		StudentID: sel.Student.ID,
		Name:      sel.Student.Name,
		Grade:     sel.Student.Grade,
		Celebrity: sel.Celebrity,
		Filename:  artifact.Filename,
		MIME:      artifact.MIME,
		Data:      artifact.Data,
	})
	if err != nil {
		w.logger.Warn("upload failed",
			zap.String("student_id", sel.Student.ID),
			zap.Error(err),
		)
		return err
	}
	w.logger.Info("submission complete",
		zap.String("student_id", sel.Student.ID),
		zap.String("video_ref", result.VideoRef),
	)

	w.mu.Lock()
	// The submitted student must not reappear in a later roster load.
	delete(w.rosterCache, sel.Student.Grade)
	onComplete := w.onComplete
	w.grade = ""
	w.roster = nil
	w.selection = nil
	w.composed = ""
	w.step = StepSelect
	w.mu.Unlock()

	if onComplete != nil {
		onComplete()
	}
	return nil
}
