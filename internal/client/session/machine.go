// Package session implements the scan session state machine: the ordered
// set of states a client instance can be in, the legal transitions between
// them, and the side effects each transition performs on the credential
// store, the capture stream, and the backend gateway.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/avitkov/cardscope/internal/client/camera"
	"github.com/avitkov/cardscope/internal/client/gateway"
	"github.com/avitkov/cardscope/internal/models"
)

var (
	// ErrBadState reports an operation attempted from a state that does
	// not allow it.
	ErrBadState = errors.New("session: operation not allowed in current state")
	// ErrSessionExpired reports that the backend rejected the credential
	// and the machine signed out.
	ErrSessionExpired = errors.New("session: credential rejected, signed out")
	// ErrScanCancelled reports that the scanning episode was cancelled
	// while its capture was in flight; any late result was discarded.
	ErrScanCancelled = errors.New("session: scan cancelled")
	// ErrNothingToSave reports a save attempt on a result without a
	// matched card.
	ErrNothingToSave = errors.New("session: scan result has no card to save")
)

// CredentialStore persists the single bearer credential across restarts.
// Load returns the empty string, not an error, when nothing is stored.
type CredentialStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Camera acquires and releases the capture stream. Close must be
// idempotent and nil-safe.
type Camera interface {
	Open(facing camera.Facing) (*camera.Stream, error)
	Close(s *camera.Stream)
}

// Capturer freezes one frame of the stream into a JPEG payload.
type Capturer func(*camera.Stream) ([]byte, error)

// Backend is the gateway to the remote operations. Authenticated calls
// report a stale credential as gateway.ErrUnauthorized.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, email, password string) error
	Scan(ctx context.Context, token string, image []byte) (*models.ScanResult, error)
	SaveCard(ctx context.Context, token string, card models.CardRecord, confidence float64) (int64, error)
	ListLibrary(ctx context.Context, token string) ([]models.CardRecord, error)
	TrainModel(ctx context.Context, token string) (string, error)
}

// Machine is the orchestrator. It owns the capture stream for the duration
// of one scanning episode and is the only writer of the credential.
//
// The machine is single-threaded and cooperative: each operation runs to
// completion before the next is accepted. CancelScan is the one entry
// point that may interleave with an in-flight Capture; it invalidates the
// episode so a result arriving afterwards is discarded.
type Machine struct {
	creds   CredentialStore
	camera  Camera
	capture Capturer
	backend Backend
	facing  camera.Facing
	log     *zap.Logger

	state   State
	session Session
	stream  *camera.Stream
	episode string
	scanCtx context.Context
	cancel  context.CancelFunc
	result  *models.ScanResult
	library []models.CardRecord
}

// New builds a machine and seeds its state from the credential store: a
// stored credential starts the machine in Idle, otherwise in
// Unauthenticated. A corrupt store is treated as absent.
func New(creds CredentialStore, cam Camera, capture Capturer, backend Backend, facing camera.Facing, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Machine{
		creds:   creds,
		camera:  cam,
		capture: capture,
		backend: backend,
		facing:  facing,
		log:     log,
		state:   StateUnauthenticated,
	}

	token, err := creds.Load()
	if err != nil {
		log.Warn("credential load failed, starting unauthenticated", zap.Error(err))
		return m
	}
	if token != "" {
		m.session = Session{Token: token}
		m.state = StateIdle
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Session returns the current session record.
func (m *Machine) Session() Session { return m.session }

// Result returns the scan result held in Reviewing, or nil.
func (m *Machine) Result() *models.ScanResult { return m.result }

// Library returns the snapshot held in Library, or nil.
func (m *Machine) Library() []models.CardRecord { return m.library }

// Login exchanges credentials for a bearer token and enters Idle. The
// token is written to the store before the transition completes.
func (m *Machine) Login(ctx context.Context, email, password string) error {
	if err := m.require("login", StateUnauthenticated); err != nil {
		return err
	}
	token, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if err := m.creds.Save(token); err != nil {
		// The session is live either way; losing durability only costs
		// a re-login after restart.
		m.log.Warn("credential save failed", zap.Error(err))
	}
	m.session = Session{Token: token, Email: email}
	m.state = StateIdle
	m.log.Info("signed in", zap.String("email", email))
	return nil
}

// Register creates an account and returns to the sign-in prompt; no
// session is created.
func (m *Machine) Register(ctx context.Context, email, password string) error {
	if err := m.require("register", StateUnauthenticated); err != nil {
		return err
	}
	if err := m.backend.Register(ctx, email, password); err != nil {
		return err
	}
	m.log.Info("registered", zap.String("email", email))
	return nil
}

// StartScan opens the capture stream and enters Scanning. On failure the
// machine stays in Idle holding no stream.
func (m *Machine) StartScan() error {
	if err := m.require("start scan", StateIdle); err != nil {
		return err
	}
	stream, err := m.camera.Open(m.facing)
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}
	m.stream = stream
	m.episode = stream.Episode
	m.scanCtx, m.cancel = context.WithCancel(context.Background())
	m.state = StateScanning
	m.log.Info("scanning started", zap.String("episode", m.episode))
	return nil
}

// CancelScan abandons the current episode: the stream is closed
// immediately, the in-flight capture (if any) is aborted, and any result
// it produces is discarded.
func (m *Machine) CancelScan() error {
	if err := m.require("cancel", StateScanning); err != nil {
		return err
	}
	m.endEpisode()
	m.state = StateIdle
	m.log.Info("scanning cancelled")
	return nil
}

// Capture freezes one frame, submits it for recognition, and enters
// Reviewing with the result. The stream is closed exactly once on every
// path that leaves Scanning; a capture or transport failure keeps the
// machine in Scanning with the stream open so the user can retry or
// cancel.
func (m *Machine) Capture() error {
	if err := m.require("capture", StateScanning); err != nil {
		return err
	}

	image, err := m.capture(m.stream)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	episode := m.episode
	result, err := m.backend.Scan(m.scanCtx, m.session.Token, image)

	// The episode may have been cancelled while the call was in flight;
	// its stream is already closed and the result no longer applies.
	if m.episode != episode {
		m.log.Info("discarding result for cancelled episode", zap.String("episode", episode))
		return ErrScanCancelled
	}

	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return m.expire()
		}
		if errors.Is(err, context.Canceled) {
			return ErrScanCancelled
		}
		return fmt.Errorf("scan: %w", err)
	}

	m.endEpisode()
	m.result = result
	m.state = StateReviewing
	m.log.Info("scan result received",
		zap.String("method", result.ScanMethod),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("matched", result.CardData != nil))
	return nil
}

// Save persists the reviewed card and returns to Idle, discarding the
// result. A transport failure keeps the machine in Reviewing with the
// result intact.
func (m *Machine) Save(ctx context.Context) error {
	if err := m.require("save", StateReviewing); err != nil {
		return err
	}
	if m.result.CardData == nil {
		return ErrNothingToSave
	}
	id, err := m.backend.SaveCard(ctx, m.session.Token, *m.result.CardData, m.result.Confidence)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return m.expire()
		}
		return fmt.Errorf("save: %w", err)
	}
	m.log.Info("card saved", zap.Int64("id", id), zap.String("name", m.result.CardData.Name))
	m.result = nil
	m.state = StateIdle
	return nil
}

// Dismiss discards the reviewed result and returns to Idle without a
// network call.
func (m *Machine) Dismiss() error {
	if err := m.require("dismiss", StateReviewing); err != nil {
		return err
	}
	m.result = nil
	m.state = StateIdle
	return nil
}

// OpenLibrary fetches a fresh library snapshot and enters Library. A
// transport failure keeps the machine in Idle.
func (m *Machine) OpenLibrary(ctx context.Context) error {
	if err := m.require("open library", StateIdle); err != nil {
		return err
	}
	cards, err := m.backend.ListLibrary(ctx, m.session.Token)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return m.expire()
		}
		return fmt.Errorf("library: %w", err)
	}
	m.library = cards
	m.state = StateLibrary
	return nil
}

// CloseLibrary discards the snapshot and returns to Idle.
func (m *Machine) CloseLibrary() error {
	if err := m.require("close library", StateLibrary); err != nil {
		return err
	}
	m.library = nil
	m.state = StateIdle
	return nil
}

// Train triggers backend model training. The message is informational;
// the state does not change.
func (m *Machine) Train(ctx context.Context) (string, error) {
	if err := m.require("train", StateIdle); err != nil {
		return "", err
	}
	msg, err := m.backend.TrainModel(ctx, m.session.Token)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return "", m.expire()
		}
		return "", fmt.Errorf("train: %w", err)
	}
	return msg, nil
}

// Logout clears the credential and every piece of transient state and
// returns to Unauthenticated. Legal from any state.
func (m *Machine) Logout() error {
	m.reset()
	if err := m.creds.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.log.Info("signed out")
	return nil
}

// expire is the single interception point for the "Unauthorized anywhere"
// rule: every authenticated call that comes back rejected funnels through
// here, so no call site can forget to invalidate the session.
func (m *Machine) expire() error {
	m.reset()
	if err := m.creds.Clear(); err != nil {
		m.log.Warn("credential clear failed", zap.Error(err))
	}
	m.log.Info("session expired, signed out")
	return ErrSessionExpired
}

// reset drops the session and all transient state. If a scanning episode
// is active its stream is closed first.
func (m *Machine) reset() {
	if m.stream != nil {
		m.endEpisode()
	}
	m.result = nil
	m.library = nil
	m.session = Session{}
	m.state = StateUnauthenticated
}

// endEpisode closes the stream and invalidates the episode so late
// results are not applied. Safe to call once per episode only; callers
// guard on the Scanning state or a held stream.
func (m *Machine) endEpisode() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.camera.Close(m.stream)
	m.stream = nil
	m.episode = ""
	m.scanCtx = nil
}

// require guards a transition on its source state.
func (m *Machine) require(op string, want State) error {
	if m.state != want {
		return fmt.Errorf("%s from %s: %w", op, m.state, ErrBadState)
	}
	return nil
}
