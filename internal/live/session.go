// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package live hosts one viewer's page over a websocket: a live binding
// for the page, the editable fields the client registers, and the viewer's
// editing mode. Pages re-render on every store change; edits go through
// the role-gated field protocol.
package live

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/binding"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editable"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/editmode"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/model"
	"github.com/Digital-Maples-Labs-Inc/aitasol-sub001/internal/slug"
)

// Inbound message types.
const (
	MsgRegister = "register"
	MsgActivate = "activate"
	MsgDraft    = "draft"
	MsgPick     = "pick"
	MsgConfirm  = "confirm"
	MsgCancel   = "cancel"
	MsgSetMode  = "setMode"
	MsgNavigate = "navigate"
	MsgSetSlug  = "setSlug"
)

// Outbound message types.
const (
	MsgPage   = "page"
	MsgField  = "field"
	MsgMode   = "mode"
	MsgViewer = "viewer"
	MsgError  = "error"
)

// outboxSize is how many outbound messages may queue before senders block.
const outboxSize = 64

var (
	// ErrUnknownField is returned for messages about an unregistered section.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownMessage is returned for unsupported message types.
	ErrUnknownMessage = errors.New("unknown message type")

	// ErrInvalidSlug is returned when a client asks for a malformed slug.
	ErrInvalidSlug = errors.New("invalid slug")

	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("live session closed")
)

// Inbound is a client message.
type Inbound struct {
	Type        string `json:"type"`
	Ref         string `json:"ref,omitempty"`
	SectionID   string `json:"sectionId,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Multiline   bool   `json:"multiline,omitempty"`
	Default     string `json:"default,omitempty"`
	Value       string `json:"value,omitempty"`
	Data        string `json:"data,omitempty"`
	Mode        string `json:"mode,omitempty"`
	Path        string `json:"path,omitempty"`
	Slug        string `json:"slug,omitempty"`
}

// Outbound is a server message.
type Outbound struct {
	Type     string         `json:"type"`
	Ref      string         `json:"ref,omitempty"`
	Slug     string         `json:"slug,omitempty"`
	Page     *model.Page    `json:"page,omitempty"`
	Loading  bool           `json:"loading,omitempty"`
	Field    *editable.View `json:"field,omitempty"`
	Handled  bool           `json:"handled,omitempty"`
	Mode     editmode.Mode  `json:"mode,omitempty"`
	Navigate string         `json:"navigate,omitempty"`
	User     *model.User    `json:"user,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// Config configures a Session.
type Config struct {
	Slug        string
	Path        string
	AdminPrefix string
	User        *model.User
	Source      binding.Source
	Compressor  editable.Compressor
	Logger      *slog.Logger
}

// liveField is one registered field; exactly one of text and image is set.
type liveField struct {
	def   string
	text  *editable.TextField
	image *editable.ImageField
}

// fallback is the section used until the page has one with this id.
func fallback(id string, image bool, def string) model.PageSection {
	sec := model.PageSection{ID: id, Editable: true}
	if image {
		sec.Metadata = map[string]any{model.MetaImageURL: def}
	} else {
		sec.Content = def
	}
	return sec
}

func (f *liveField) render(v editable.Viewer) editable.View {
	if f.image != nil {
		return f.image.Render(v)
	}
	return f.text.Render(v)
}

// Session is one viewer's live page. Outbound messages are read from Out.
type Session struct {
	binding    *binding.Binding
	mode       *editmode.Switch
	compressor editable.Compressor
	logger     *slog.Logger

	out  chan Outbound
	done chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	saves  sync.WaitGroup

	mu     sync.Mutex
	user   *model.User
	fields map[string]*liveField
	closed bool

	stops []func()
}

// NewSession binds the page and starts publishing its state.
func NewSession(cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		compressor: cfg.Compressor,
		logger:     cfg.Logger,
		out:        make(chan Outbound, outboxSize),
		done:       make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		user:       cfg.User,
		fields:     make(map[string]*liveField),
	}

	s.mode = editmode.New(cfg.Path, editmode.Options{
		AdminPrefix: cfg.AdminPrefix,
		Logger:      cfg.Logger,
		Navigator: editmode.NavigatorFunc(func(path string) {
			s.send(Outbound{Type: MsgMode, Mode: s.mode.Mode(), Navigate: path})
		}),
	})
	s.stops = append(s.stops, s.mode.OnChange(func(editmode.Mode) { s.renderFields() }))

	s.binding = binding.New(cfg.Source, cfg.Slug, cfg.Logger)
	s.stops = append(s.stops, s.binding.Watch(func(binding.State) { s.refresh() }))
	s.send(Outbound{Type: MsgViewer, User: cfg.User, Mode: s.mode.Mode()})
	s.refresh()
	return s
}

// Out returns the outbound message stream. Readers stop once Done is closed.
func (s *Session) Out() <-chan Outbound {
	return s.out
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Viewer returns who is viewing and in which mode.
func (s *Session) Viewer() editable.Viewer {
	s.mu.Lock()
	user := s.user
	s.mu.Unlock()
	return editable.Viewer{User: user, Mode: s.mode.Mode()}
}

// Mode returns the current editing mode.
func (s *Session) Mode() editmode.Mode {
	return s.mode.Mode()
}

// SetUser replaces the viewer after a sign-in, sign-out or role change and
// re-renders every field. Confirms already past their authorization check
// are not affected.
func (s *Session) SetUser(u *model.User) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.user = u
	s.mu.Unlock()

	s.send(Outbound{Type: MsgViewer, User: u, Mode: s.mode.Mode()})
	s.renderFields()
}

// Handle processes one client message. Errors are also reported to the
// client as error or field messages.
func (s *Session) Handle(msg Inbound) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	var err error
	switch msg.Type {
	case MsgRegister:
		err = s.register(msg)
	case MsgActivate:
		err = s.activate(msg)
	case MsgDraft:
		err = s.withField(msg, func(f *liveField) error {
			if f.image != nil {
				return f.image.SetDraftURL(msg.Value)
			}
			return f.text.SetDraft(msg.Value)
		})
	case MsgPick:
		err = s.withField(msg, func(f *liveField) error {
			if f.image == nil {
				return fmt.Errorf("%w: %s is not an image", ErrUnknownField, msg.SectionID)
			}
			raw, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				return fmt.Errorf("decoding picked file: %w", err)
			}
			return f.image.PickFile(bytes.NewReader(raw))
		})
	case MsgConfirm:
		err = s.confirm(msg)
	case MsgCancel:
		err = s.withField(msg, func(f *liveField) error {
			if f.image != nil {
				return f.image.Cancel()
			}
			return f.text.Cancel()
		})
	case MsgSetMode:
		err = s.setMode(msg)
	case MsgNavigate:
		s.mode.Navigated(msg.Path)
		s.send(Outbound{Type: MsgMode, Ref: msg.Ref, Mode: s.mode.Mode()})
	case MsgSetSlug:
		if !slug.Valid(msg.Slug) {
			err = fmt.Errorf("%w: %q", ErrInvalidSlug, msg.Slug)
			break
		}
		s.mu.Lock()
		s.fields = make(map[string]*liveField)
		s.mu.Unlock()
		s.binding.SetSlug(msg.Slug)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}

	if err != nil && !errors.Is(err, ErrUnknownField) && msg.SectionID != "" {
		// Field errors already travel with the field view.
		return err
	}
	if err != nil {
		s.send(Outbound{Type: MsgError, Ref: msg.Ref, Error: err.Error()})
	}
	return err
}

func (s *Session) register(msg Inbound) error {
	if msg.SectionID == "" {
		return fmt.Errorf("%w: missing section id", ErrUnknownField)
	}

	id := msg.SectionID
	isImage := msg.Kind == editable.KindImage
	sec := s.binding.SectionOr(id, fallback(id, isImage, msg.Default))

	f := &liveField{def: msg.Default}
	if isImage {
		f.image = editable.NewImageField(editable.ImageConfig{
			SectionID:   id,
			Value:       sec.ImageURL(),
			Editable:    sec.Editable,
			Placeholder: msg.Placeholder,
			Compressor:  s.compressor,
			Save: func(ctx context.Context, url string) error {
				return s.binding.UpdateSectionImage(ctx, id, url, nil)
			},
		})
	} else {
		f.text = editable.NewTextField(editable.TextConfig{
			SectionID:   id,
			Value:       sec.Content,
			Editable:    sec.Editable,
			Placeholder: msg.Placeholder,
			Multiline:   msg.Multiline,
			Save: func(ctx context.Context, value string) error {
				return s.binding.UpdateSectionContent(ctx, id, value)
			},
		})
	}

	s.mu.Lock()
	s.fields[id] = f
	s.mu.Unlock()

	s.sendField(msg.Ref, f, false)
	return nil
}

func (s *Session) activate(msg Inbound) error {
	f, err := s.field(msg.SectionID)
	if err != nil {
		return err
	}

	ev := &editable.Event{}
	var opened bool
	if f.image != nil {
		opened = f.image.Activate(s.Viewer(), ev)
	} else {
		opened = f.text.Activate(s.Viewer(), ev)
	}
	s.sendField(msg.Ref, f, ev.PropagationStopped())
	if !opened {
		return editable.ErrNotAuthorized
	}
	return nil
}

// confirm moves the field to saving and returns; the write runs in the
// background and its outcome arrives later as a field message.
func (s *Session) confirm(msg Inbound) error {
	f, err := s.field(msg.SectionID)
	if err != nil {
		return err
	}

	var save func(context.Context) error
	if f.image != nil {
		save, err = f.image.Begin(s.Viewer())
	} else {
		save, err = f.text.Begin(s.Viewer())
	}
	s.sendField(msg.Ref, f, false)
	if err != nil || save == nil {
		return err
	}

	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		if err := save(s.ctx); err != nil {
			s.logger.Warn("section save failed",
				"category", model.EventCategorySection,
				"slug", s.binding.Slug(),
				"section", msg.SectionID,
				"error", err,
			)
		}
		s.sendField(msg.Ref, f, false)
	}()
	return nil
}

func (s *Session) setMode(msg Inbound) error {
	m, err := editmode.ParseMode(msg.Mode)
	if err != nil {
		return err
	}
	if m == editmode.Backend && !s.Viewer().User.CanEditContent() {
		return editable.ErrNotAuthorized
	}
	return s.mode.Set(m)
}

// withField runs fn on a registered field and echoes its view.
func (s *Session) withField(msg Inbound, fn func(*liveField) error) error {
	f, err := s.field(msg.SectionID)
	if err != nil {
		return err
	}
	err = fn(f)
	s.sendField(msg.Ref, f, false)
	return err
}

func (s *Session) field(id string) (*liveField, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.fields[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	return f, nil
}

// refresh publishes the binding's current state and pushes fresh upstream
// values into every registered field.
func (s *Session) refresh() {
	st := s.binding.State()

	msg := Outbound{Type: MsgPage, Slug: st.Slug, Page: st.Page, Loading: st.Loading}
	if st.Err != nil {
		msg.Error = st.Err.Error()
	}
	s.send(msg)

	if st.Loading {
		return
	}

	s.mu.Lock()
	fields := make(map[string]*liveField, len(s.fields))
	for id, f := range s.fields {
		fields[id] = f
	}
	s.mu.Unlock()

	for id, f := range fields {
		sec := st.Page.SectionOr(id, fallback(id, f.image != nil, f.def))
		if f.image != nil {
			f.image.SetValue(sec.ImageURL())
			f.image.SetEditable(sec.Editable)
		} else {
			f.text.SetValue(sec.Content)
			f.text.SetEditable(sec.Editable)
		}
		s.sendField("", f, false)
	}
}

func (s *Session) renderFields() {
	s.mu.Lock()
	fields := make([]*liveField, 0, len(s.fields))
	for _, f := range s.fields {
		fields = append(fields, f)
	}
	s.mu.Unlock()

	for _, f := range fields {
		s.sendField("", f, false)
	}
}

func (s *Session) sendField(ref string, f *liveField, handled bool) {
	view := f.render(s.Viewer())
	s.send(Outbound{Type: MsgField, Ref: ref, Field: &view, Handled: handled})
}

// send queues msg unless the session is closed.
func (s *Session) send(msg Outbound) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.out <- msg:
	case <-s.done:
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the page subscription, cancels outstanding saves and
// waits for them to finish. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
	s.binding.Close()
	close(s.done)
	s.cancel()
	s.saves.Wait()
}

