package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cuentia/server/internal/module/character"
	"github.com/cuentia/server/internal/module/credits"
	"github.com/cuentia/server/internal/module/pricing"
	apperrors "github.com/cuentia/server/internal/shared/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStore archives reference images.
type ObjectStore interface {
	Key(elem ...string) string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

// ServiceInterface defines generation operations.
type ServiceInterface interface {
	Quote(ctx context.Context, userID uuid.UUID, req *QuoteRequest) (*QuoteResponse, error)
	GenerateAvatar(ctx context.Context, userID uuid.UUID, in *AvatarInput) (*Generation, error)
	GenerateStory(ctx context.Context, userID uuid.UUID, req *StoryRequest) (*Generation, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Generation, error)
}

// Service orchestrates paid generations: check, debit, call the gateway,
// then confirm or roll back the debit.
type Service struct {
	repo       Repository
	credits    credits.ServiceInterface
	characters character.ServiceInterface
	catalog    *pricing.Catalog
	gateway    Gateway
	store      ObjectStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new generation service. store may be nil.
func NewService(
	repo Repository,
	creditsSvc credits.ServiceInterface,
	characters character.ServiceInterface,
	catalog *pricing.Catalog,
	gateway Gateway,
	store ObjectStore,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:       repo,
		credits:    creditsSvc,
		characters: characters,
		catalog:    catalog,
		gateway:    gateway,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// Quote returns the server-computed cost of an operation.
func (s *Service) Quote(ctx context.Context, userID uuid.UUID, req *QuoteRequest) (*QuoteResponse, error) {
	overrides := 0
	if req.Operation == pricing.OperationStory {
		chars, err := s.characters.GetOwned(ctx, userID, req.CharacterIDs)
		if err != nil {
			return nil, err
		}
		overrides = character.CountOverrides(chars)
	}

	cost, err := s.catalog.Quote(req.Operation, req.Illustrations, overrides)
	if err != nil {
		return nil, err
	}

	ok, err := s.credits.CanAfford(ctx, userID, cost)
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{Cost: cost, Affordable: ok}, nil
}

// GenerateAvatar runs a paid avatar generation.
func (s *Service) GenerateAvatar(ctx context.Context, userID uuid.UUID, in *AvatarInput) (*Generation, error) {
	name := strings.TrimSpace(in.Name)
	prompt := strings.TrimSpace(in.Prompt)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	if len(in.Images) > MaxReferenceImages {
		return nil, ErrTooManyImages
	}

	var charIDs []uuid.UUID
	if in.CharacterID != nil {
		if _, err := s.characters.Get(ctx, userID, *in.CharacterID); err != nil {
			return nil, err
		}
		charIDs = []uuid.UUID{*in.CharacterID}
	}

	cost := s.catalog.AvatarCost()
	if err := pricing.CheckExpected(cost, in.ExpectedCost); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"name":   name,
		"prompt": prompt,
	}

	return s.run(ctx, runParams{
		userID:  userID,
		op:      pricing.OperationAvatar,
		cost:    cost,
		charIDs: charIDs,
		fields:  fields,
		files:   in.Images,
		onSuccess: func(ctx context.Context, g *Generation) {
			if in.CharacterID == nil {
				return
			}
			if err := s.characters.SetAvatarURL(ctx, userID, *in.CharacterID, g.ResultURL); err != nil {
				s.logger.Error("set character avatar",
					zap.String("generation_id", g.ID.String()),
					zap.String("character_id", in.CharacterID.String()),
					zap.Error(err),
				)
			}
		},
	})
}

type storyCharacter struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// GenerateStory runs a paid story generation.
func (s *Service) GenerateStory(ctx context.Context, userID uuid.UUID, req *StoryRequest) (*Generation, error) {
	title := strings.TrimSpace(req.Title)
	prompt := strings.TrimSpace(req.Prompt)
	if title == "" || prompt == "" {
		return nil, fmt.Errorf("%w: title and prompt are required", ErrInvalidRequest)
	}

	chars, err := s.characters.GetOwned(ctx, userID, req.CharacterIDs)
	if err != nil {
		return nil, err
	}

	cost, err := s.catalog.StoryCost(req.Illustrations, character.CountOverrides(chars))
	if err != nil {
		return nil, err
	}
	if err := pricing.CheckExpected(cost, req.ExpectedCost); err != nil {
		return nil, err
	}

	cast := make([]storyCharacter, len(chars))
	charIDs := make([]uuid.UUID, len(chars))
	for i, c := range chars {
		cast[i] = storyCharacter{Name: c.Name, Description: c.VisualDescription, AvatarURL: c.AvatarURL}
		charIDs[i] = c.ID
	}
	castJSON, err := json.Marshal(cast)
	if err != nil {
		return nil, fmt.Errorf("encode characters: %w", err)
	}

	language := req.Language
	if language == "" {
		language = "es"
	}

	return s.run(ctx, runParams{
		userID:  userID,
		op:      pricing.OperationStory,
		cost:    cost,
		charIDs: charIDs,
		fields: map[string]string{
			"title":         title,
			"prompt":        prompt,
			"language":      language,
			"illustrations": strconv.Itoa(req.Illustrations),
			"characters":    string(castJSON),
		},
	})
}

// Get returns a generation owned by the user.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Generation, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.UserID != userID {
		return nil, ErrGenerationNotFound
	}
	return g, nil
}

type runParams struct {
	userID    uuid.UUID
	op        pricing.Operation
	cost      int64
	charIDs   []uuid.UUID
	fields    map[string]string
	files     []File
	onSuccess func(ctx context.Context, g *Generation)
}

// run executes the paid section. Every debit it creates is either confirmed or
// rolled back before it returns; a crash in between is left to the reconciler.
func (s *Service) run(ctx context.Context, p runParams) (*Generation, error) {
	op := string(p.op)
	log := s.logger.With(
		zap.String("user_id", p.userID.String()),
		zap.String("operation", op),
	)

	affordable, err := s.credits.CanAfford(ctx, p.userID, p.cost)
	if err != nil {
		return nil, err
	}
	if !affordable {
		return nil, credits.Fail(op, credits.KindInsufficientCredit, credits.ErrInsufficientCredits)
	}

	now := s.now()
	gen := &Generation{
		ID:           uuid.New(),
		UserID:       p.userID,
		Operation:    p.op,
		Status:       StatusPending,
		Cost:         p.cost,
		CharacterIDs: uuidStrings(p.charIDs),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	log = log.With(zap.String("generation_id", gen.ID.String()))
	gen.ReferenceKeys = s.archive(ctx, gen, p.files, log)

	if err := s.repo.Create(ctx, gen); err != nil {
		return nil, credits.Fail(op, credits.KindPersistenceFailure, fmt.Errorf("create generation: %w", err))
	}

	debit, err := s.credits.Debit(ctx, credits.DebitRequest{
		UserID:        p.userID,
		Cost:          p.cost,
		Reason:        op,
		CorrelationID: gen.ID,
	})
	if err != nil {
		s.finishFailed(context.WithoutCancel(ctx), gen, "debit failed", log)
		return nil, err
	}
	gen.DebitID = &debit.ID

	fields := make(map[string]string, len(p.fields)+1)
	for k, v := range p.fields {
		fields[k] = v
	}
	fields["generation_id"] = gen.ID.String()

	result, gerr := s.gateway.Generate(ctx, &GatewayRequest{Operation: p.op, Fields: fields, Files: p.files})

	// The outcome must be recorded even if the client went away.
	settleCtx := context.WithoutCancel(ctx)

	if gerr != nil {
		log.Warn("generation gateway failed", zap.Error(gerr))
		if _, err := s.credits.Rollback(settleCtx, debit.ID, "gateway_failure"); err != nil {
			if errors.Is(err, credits.ErrDebitSettled) {
				log.Info("debit already settled", zap.String("debit_id", debit.ID.String()))
			} else {
				log.Error("rollback after gateway failure",
					zap.String("debit_id", debit.ID.String()),
					zap.Error(err),
				)
			}
		}
		s.finishFailed(settleCtx, gen, gerr.Error(), log)
		return nil, credits.Fail(op, credits.KindGatewayFailure,
			apperrors.UpstreamFailed("generation failed; credits were refunded", gerr))
	}

	if err := s.credits.Confirm(settleCtx, debit.ID); err != nil {
		log.Error("confirm debit", zap.String("debit_id", debit.ID.String()), zap.Error(err))
	}

	gen.markSucceeded(result.ResultURL, s.now())
	if err := s.repo.Update(settleCtx, gen); err != nil {
		log.Error("record generation result", zap.Error(err))
	}
	if p.onSuccess != nil {
		p.onSuccess(settleCtx, gen)
	}

	log.Info("generation succeeded", zap.Int64("cost", p.cost))
	return gen, nil
}

func (s *Service) finishFailed(ctx context.Context, gen *Generation, reason string, log *zap.Logger) {
	gen.markFailed(reason, s.now())
	if err := s.repo.Update(ctx, gen); err != nil {
		log.Error("record generation failure", zap.Error(err))
	}
}

// archive stores reference images and returns their keys. Storage errors are
// logged and the image is still forwarded to the gateway.
func (s *Service) archive(ctx context.Context, gen *Generation, files []File, log *zap.Logger) []string {
	if s.store == nil || len(files) == 0 {
		return nil
	}

	keys := make([]string, 0, len(files))
	for i, f := range files {
		name := fmt.Sprintf("%02d%s", i, path.Ext(f.Name))
		key := s.store.Key("references", gen.UserID.String(), gen.ID.String(), name)
		if err := s.store.Put(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), f.ContentType); err != nil {
			log.Warn("archive reference image", zap.String("key", key), zap.Error(err))
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

var _ ServiceInterface = (*Service)(nil)
