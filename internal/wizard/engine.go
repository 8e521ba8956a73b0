// Package wizard drives multi-step conversations. Each user has at most one
// active scene session; every event for a user is handled under that user's
// lock, and a step's new state is persisted only when the step succeeds.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tournament_bot/internal/chat"
	"tournament_bot/internal/lock"
	"tournament_bot/internal/session"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ApologyText is sent when a step fails on an infrastructure error
const ApologyText = "⚠️ Something went wrong on our side. Please try again in a moment."

// PermissionText is sent when a non-admin enters an admin scene
const PermissionText = "⛔ This action is only available to admins."

var (
	// ErrSceneActive is returned by Enter when the user is already in a scene
	ErrSceneActive = errors.New("scene already active")
	// ErrUnknownScene is returned for names that were never registered
	ErrUnknownScene = errors.New("unknown scene")
)

// Actor identifies who sent an event
type Actor struct {
	UserID   int64
	ChatID   int64
	Username string
	Name     string
	IsAdmin  bool
}

// Context is handed to every step
type Context struct {
	ctx    context.Context
	Actor  Actor
	Log    *logrus.Entry
	sender chat.Sender
	scope  string
}

// Ctx returns the request context
func (c *Context) Ctx() context.Context { return c.ctx }

// Reply sends a message to the actor's chat. Buttons made with Button are
// bound to the current session, so they stop working once it ends.
func (c *Context) Reply(text string, rows ...[]chat.Button) error {
	return c.sender.Send(c.ctx, c.Actor.ChatID, chat.Text(text, c.bind(rows)...))
}

func (c *Context) bind(rows [][]chat.Button) [][]chat.Button {
	out := make([][]chat.Button, len(rows))
	for i, row := range rows {
		out[i] = make([]chat.Button, len(row))
		for j, b := range row {
			if rest, ok := strings.CutPrefix(b.Data, callbackPrefix+"|"); ok {
				b.Data = callbackPrefix + "|" + c.scope + "|" + rest
			}
			out[i][j] = b
		}
	}
	return out
}

// Say is Reply for prompts whose delivery failure should not abort the step
func (c *Context) Say(text string, rows ...[]chat.Button) {
	if err := c.Reply(text, rows...); err != nil {
		c.Log.WithError(err).Warn("Reply failed")
	}
}

// Engine runs scenes
type Engine struct {
	store  session.Store
	locker lock.Locker
	sender chat.Sender
	log    *logrus.Logger
	tracer trace.Tracer
	now    func() time.Time
	scenes map[string]Scene
}

// NewEngine builds an Engine with the given scenes registered
func NewEngine(store session.Store, locker lock.Locker, sender chat.Sender, log *logrus.Logger, scenes ...Scene) *Engine {
	e := &Engine{
		store:  store,
		locker: locker,
		sender: sender,
		log:    log,
		tracer: otel.Tracer("tournament_bot/wizard"),
		now:    time.Now,
		scenes: make(map[string]Scene),
	}
	for _, s := range scenes {
		e.Register(s)
	}
	return e
}

// Register adds a scene; a later scene with the same name replaces the earlier one
func (e *Engine) Register(s Scene) { e.scenes[s.Name()] = s }

// Enter starts scene for the actor. It fails with ErrSceneActive if the
// actor already has a session.
func (e *Engine) Enter(ctx context.Context, a Actor, name string, params map[string]string) error {
	return e.withUser(ctx, a.UserID, func(ctx context.Context) error {
		if _, err := e.store.Get(ctx, a.UserID); err == nil {
			return ErrSceneActive
		} else if !errors.Is(err, session.ErrNotFound) {
			return err
		}
		return e.enter(ctx, a, name, params)
	})
}

// Replace discards any active session, logging the abandonment, and enters scene
func (e *Engine) Replace(ctx context.Context, a Actor, name string, params map[string]string) error {
	return e.withUser(ctx, a.UserID, func(ctx context.Context) error {
		if err := e.abandon(ctx, a.UserID, "replaced by "+name); err != nil {
			return err
		}
		return e.enter(ctx, a, name, params)
	})
}

// Cancel destroys the active session. It reports whether there was one.
func (e *Engine) Cancel(ctx context.Context, a Actor) (bool, error) {
	var had bool
	err := e.withUser(ctx, a.UserID, func(ctx context.Context) error {
		_, err := e.store.Get(ctx, a.UserID)
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		had = true
		return e.abandon(ctx, a.UserID, "cancelled")
	})
	return had, err
}

// Active returns the name of the actor's active scene
func (e *Engine) Active(ctx context.Context, userID int64) (string, bool, error) {
	s, err := e.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Scene, true, nil
}

// Dispatch feeds ev to the actor's active step. handled is false when the
// actor has no session, so the caller can fall back to command routing.
func (e *Engine) Dispatch(ctx context.Context, a Actor, ev Event) (handled bool, err error) {
	err = e.withUser(ctx, a.UserID, func(ctx context.Context) error {
		sess, err := e.store.Get(ctx, a.UserID)
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if ev.IsAction() && ev.Scope != scopeOf(sess) {
			e.log.WithFields(logrus.Fields{"user_id": a.UserID, "scene": sess.Scene, "action": ev.Action}).Info("Button from another session ignored")
			return nil
		}
		handled = true
		scene, ok := e.scenes[sess.Scene]
		if !ok {
			e.log.WithFields(logrus.Fields{"user_id": a.UserID, "scene": sess.Scene}).Warn("Session for unknown scene dropped")
			return e.store.Delete(ctx, a.UserID)
		}

		ctx, span := e.tracer.Start(ctx, "wizard.dispatch", trace.WithAttributes(
			attribute.String("scene", sess.Scene),
			attribute.Int("cursor", sess.Cursor),
			attribute.Bool("action", ev.IsAction()),
		))
		defer span.End()

		c := e.context(ctx, a, sess)
		state, t, stepErr := scene.Step(c, sess.Cursor, sess.State, ev)
		if stepErr != nil {
			span.RecordError(stepErr)
			span.SetStatus(codes.Error, stepErr.Error())
			return e.fail(ctx, c, sess, stepErr)
		}
		next, alive := t.apply(sess.Cursor, scene.Len())
		c.Log.WithFields(logrus.Fields{"cursor": sess.Cursor, "transition": t.String()}).Debug("Step handled")
		if !alive {
			return e.store.Delete(ctx, a.UserID)
		}
		sess.Cursor = next
		sess.State = state
		sess.ChatID = a.ChatID
		sess.UpdatedAt = e.now().UTC()
		return e.store.Put(ctx, sess)
	})
	return handled, err
}

func (e *Engine) enter(ctx context.Context, a Actor, name string, params map[string]string) error {
	scene, ok := e.scenes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScene, name)
	}
	now := e.now().UTC()
	sess := &session.Session{
		UserID:    a.UserID,
		ChatID:    a.ChatID,
		Scene:     name,
		Nonce:     strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		StartedAt: now,
		UpdatedAt: now,
	}
	c := e.context(ctx, a, sess)
	if scene.AdminOnly() && !a.IsAdmin {
		c.Log.Warn("Non-admin tried to enter admin scene")
		c.Say(PermissionText)
		return nil
	}
	state, t, err := scene.Start(c, params)
	if err != nil {
		return e.fail(ctx, c, sess, err)
	}
	next, alive := t.apply(0, scene.Len())
	if !alive {
		return nil
	}
	sess.Cursor = next
	sess.State = state
	c.Log.Info("Scene entered")
	return e.store.Put(ctx, sess)
}

// abandon deletes a session if one exists and logs where it stopped
func (e *Engine) abandon(ctx context.Context, userID int64, reason string) error {
	prev, err := e.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	e.log.WithFields(logrus.Fields{
		"user_id": userID,
		"scene":   prev.Scene,
		"cursor":  prev.Cursor,
		"age":     e.now().Sub(prev.StartedAt).Round(time.Second).String(),
		"reason":  reason,
	}).Info("Scene abandoned")
	return e.store.Delete(ctx, userID)
}

// fail is the error boundary: log everything, apologise, end the scene
func (e *Engine) fail(ctx context.Context, c *Context, sess *session.Session, err error) error {
	c.Log.WithFields(logrus.Fields{"cursor": sess.Cursor, "error": err.Error()}).Error("Scene step failed")
	c.Say(ApologyText)
	if derr := e.store.Delete(ctx, sess.UserID); derr != nil && !errors.Is(derr, session.ErrNotFound) {
		return derr
	}
	return nil
}

func (e *Engine) context(ctx context.Context, a Actor, sess *session.Session) *Context {
	return &Context{
		ctx:    ctx,
		Actor:  a,
		sender: e.sender,
		scope:  scopeOf(sess),
		Log:    e.log.WithFields(logrus.Fields{"user_id": a.UserID, "scene": sess.Scene}),
	}
}

// scopeOf names one session; buttons carry it back
func scopeOf(sess *session.Session) string { return sess.Scene + "." + sess.Nonce }

func (e *Engine) withUser(ctx context.Context, userID int64, fn func(context.Context) error) error {
	unlock, err := e.locker.Lock(ctx, "user:"+strconv.FormatInt(userID, 10))
	if err != nil {
		return fmt.Errorf("lock user %d: %w", userID, err)
	}
	defer unlock()
	return fn(ctx)
}
