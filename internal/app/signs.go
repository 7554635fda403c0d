package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/gesture"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/store"
)

var (
	// ErrNoStore is returned by library operations when the app runs without a store.
	ErrNoStore = errors.New("sign library not configured")
	// ErrNameRequired is returned when a recording has no name.
	ErrNameRequired = errors.New("sign name is required")
	// ErrSignExists is returned when a sign with the same name is already stored.
	ErrSignExists = errors.New("sign already exists")
)

// CreateSign turns a recording into a template and stores it under a new ID.
func (a *App) CreateSign(rec gesture.Recording) (*store.Sign, error) {
	s := a.config.Store
	if s == nil {
		return nil, ErrNoStore
	}

	rec.Name = strings.TrimSpace(rec.Name)
	if rec.Name == "" {
		return nil, ErrNameRequired
	}
	if _, err := s.Signs().GetByName(rec.Name); err == nil {
		return nil, ErrSignExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	tmpl, err := a.trainer.BuildTemplate(rec)
	if err != nil {
		return nil, err
	}
	data, err := encodeFrames(tmpl.Frames)
	if err != nil {
		return nil, err
	}

	sign := &store.Sign{
		ID:          uuid.New().String(),
		Name:        tmpl.Name,
		Description: tmpl.Description,
		Confidence:  tmpl.BaselineConfidence,
	}
	if err := s.Signs().Create(sign); err != nil {
		return nil, fmt.Errorf("create sign: %w", err)
	}
	if err := s.Frames().Replace(sign.ID, data); err != nil {
		if delErr := s.Signs().Delete(sign.ID); delErr != nil {
			a.logger.Error("removing half-created sign", zap.String("id", sign.ID), zap.Error(delErr))
		}
		return nil, fmt.Errorf("store frames: %w", err)
	}
	sign.FrameCount = len(data)

	a.logger.Info("sign recorded",
		zap.String("id", sign.ID),
		zap.String("name", sign.Name),
		zap.Int("frames", sign.FrameCount),
	)
	return sign, nil
}

// ReplaceFrames re-records the frames of an existing sign. Name and description
// of the recording are ignored.
func (a *App) ReplaceFrames(id string, rec gesture.Recording) (*store.Sign, error) {
	s := a.config.Store
	if s == nil {
		return nil, ErrNoStore
	}

	sign, err := s.Signs().GetByID(id)
	if err != nil {
		return nil, err
	}

	rec.Name = sign.Name
	tmpl, err := a.trainer.BuildTemplate(rec)
	if err != nil {
		return nil, err
	}
	data, err := encodeFrames(tmpl.Frames)
	if err != nil {
		return nil, err
	}
	if err := s.Frames().Replace(id, data); err != nil {
		return nil, fmt.Errorf("store frames: %w", err)
	}

	a.logger.Info("sign frames replaced", zap.String("id", id), zap.Int("frames", len(data)))
	return s.Signs().GetByID(id)
}

func encodeFrames(frames []gesture.TemplateFrame) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(frames))
	for i, f := range frames {
		data, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", i, err)
		}
		out[i] = data
	}
	return out, nil
}

// storeTemplates loads the sign library as matcher templates.
type storeTemplates struct {
	store  *store.Store
	logger *zap.Logger
}

// LoadTemplates reads every stored sign with its frames. Undecodable frames are
// skipped and signs left without frames are ignored.
func (t *storeTemplates) LoadTemplates(ctx context.Context) ([]*gesture.Template, error) {
	signs, err := t.store.Signs().List()
	if err != nil {
		return nil, fmt.Errorf("list signs: %w", err)
	}

	templates := make([]*gesture.Template, 0, len(signs))
	for _, sg := range signs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raws, err := t.store.Frames().Get(sg.ID)
		if err != nil {
			return nil, fmt.Errorf("frames of %s: %w", sg.Name, err)
		}

		tmpl := &gesture.Template{
			ID:                 sg.ID,
			Name:               sg.Name,
			Description:        sg.Description,
			BaselineConfidence: sg.Confidence,
		}
		for i, raw := range raws {
			var tf gesture.TemplateFrame
			if err := json.Unmarshal(raw, &tf); err != nil {
				t.logger.Warn("skipping stored frame",
					zap.String("sign", sg.Name),
					zap.Int("sequence", i),
					zap.Error(err),
				)
				continue
			}
			tmpl.Frames = append(tmpl.Frames, tf)
		}
		if len(tmpl.Frames) == 0 {
			continue
		}
		templates = append(templates, tmpl)
	}

	return templates, nil
}
