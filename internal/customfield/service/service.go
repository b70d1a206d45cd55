package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/clock"
	"github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/smallbiznis/mesa/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customfield.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	label := strings.TrimSpace(req.Label)
	if label == "" {
		return nil, domain.ErrInvalidLabel
	}
	if !req.FieldType.Valid() {
		return nil, domain.ErrInvalidFieldType
	}
	if !domain.TargetModels[req.TargetModel] {
		return nil, domain.ErrInvalidTargetModel
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.ReplaceAll(slug.Make(label), "-", "_")
	}

	// Upstream validation already guarantees uniqueness; re-check here so
	// the store stays safe when reused outside that pipeline.
	duplicate, err := s.repo.FindDuplicate(ctx, s.db, account.ID, req.TargetModel, name, label, 0)
	if err != nil {
		return nil, err
	}
	if duplicate != nil {
		return nil, domain.ErrConflict
	}

	now := s.clock.Now()
	field := &domain.CustomField{
		ID:           s.genID.Generate(),
		AccountID:    account.ID,
		Name:         name,
		Label:        label,
		DefaultValue: req.DefaultValue,
		FieldType:    req.FieldType,
		TargetModel:  req.TargetModel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if field.FieldType.HasOptions() {
		for _, input := range req.Options {
			field.Options = append(field.Options, domain.CustomFieldOption{
				ID:            s.genID.Generate(),
				CustomFieldID: field.ID,
				Label:         input.Label,
				Value:         input.Value,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, field); err != nil {
			return err
		}
		return s.seedValues(ctx, tx, account, field)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	s.log.Info("custom field created",
		zap.String("field_id", field.ID.String()),
		zap.String("target_model", field.TargetModel),
	)

	resp := toResponse(field)
	return &resp, nil
}

// seedValues populates a value row for every existing record of the target
// model so a new definition is immediately visible, holding the default when
// one is set.
func (s *Service) seedValues(ctx context.Context, tx *gorm.DB, account accountcontext.Account, field *domain.CustomField) error {
	targetIDs, err := s.repo.TargetIDs(ctx, tx, accountcontext.Scope{AccountID: account.ID}, field.TargetModel)
	if err != nil {
		return err
	}
	if len(targetIDs) == 0 {
		return nil
	}

	var stored *string
	if field.DefaultValue != nil {
		encoded := encodeDefault(field)
		stored = &encoded
	}

	now := s.clock.Now()
	rows := make([]domain.CustomFieldValue, 0, len(targetIDs))
	for _, targetID := range targetIDs {
		rows = append(rows, domain.CustomFieldValue{
			ID:            s.genID.Generate(),
			TargetID:      targetID,
			CustomFieldID: field.ID,
			Value:         stored,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return s.repo.UpsertValues(ctx, tx, rows)
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	fieldID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	scope := accountcontext.ScopeFor(account)

	field, err := s.repo.FindByID(ctx, s.db, scope, fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, domain.ErrNotFound
	}

	oldDefault := field.DefaultValue
	if req.Name != nil {
		field.Name = strings.TrimSpace(*req.Name)
	}
	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label == "" {
			return nil, domain.ErrInvalidLabel
		}
		field.Label = label
	}
	if req.FieldType != nil {
		if !req.FieldType.Valid() {
			return nil, domain.ErrInvalidFieldType
		}
		field.FieldType = *req.FieldType
	}
	if req.DefaultValue != nil {
		field.DefaultValue = req.DefaultValue
	}

	if req.Name != nil || req.Label != nil {
		duplicate, err := s.repo.FindDuplicate(ctx, s.db, field.AccountID, field.TargetModel, field.Name, field.Label, field.ID)
		if err != nil {
			return nil, err
		}
		if duplicate != nil {
			return nil, domain.ErrConflict
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		field.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, field); err != nil {
			return err
		}

		targetIDs, err := s.repo.TargetIDs(ctx, tx, accountcontext.Scope{AccountID: field.AccountID}, field.TargetModel)
		if err != nil {
			return err
		}

		if field.FieldType.HasOptions() && len(req.Options) > 0 {
			valid, err := s.reconcileOptions(ctx, tx, field, req.Options)
			if err != nil {
				return err
			}
			if err := s.repairValues(ctx, tx, field, targetIDs, valid); err != nil {
				return err
			}
		}

		defaultChanged := req.DefaultValue != nil && (oldDefault == nil || *oldDefault != *req.DefaultValue)
		if defaultChanged && len(targetIDs) > 0 {
			if err := s.propagateDefault(ctx, tx, field, targetIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, scope, fieldID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(updated)
	return &resp, nil
}

// reconcileOptions diffs the submitted option list against the persisted set
// keyed by value: unseen values are created, changed labels updated, and
// persisted options absent from the submission deleted. Returns the surviving
// value set.
func (s *Service) reconcileOptions(ctx context.Context, tx *gorm.DB, field *domain.CustomField, submitted []domain.OptionInput) (map[string]bool, error) {
	existing := make(map[string]domain.CustomFieldOption, len(field.Options))
	for _, opt := range field.Options {
		existing[opt.Value] = opt
	}

	valid := make(map[string]bool, len(submitted))
	now := s.clock.Now()
	var created []domain.CustomFieldOption

	for _, input := range submitted {
		valid[input.Value] = true
		current, seen := existing[input.Value]
		if !seen {
			created = append(created, domain.CustomFieldOption{
				ID:            s.genID.Generate(),
				CustomFieldID: field.ID,
				Label:         input.Label,
				Value:         input.Value,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		} else if current.Label != input.Label {
			if err := s.repo.UpdateOptionLabel(ctx, tx, field.ID, input.Value, input.Label); err != nil {
				return nil, err
			}
		}
		delete(existing, input.Value)
	}

	if err := s.repo.CreateOptions(ctx, tx, created); err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(existing))
	for value := range existing {
		removed = append(removed, value)
	}
	if err := s.repo.DeleteOptionsByValue(ctx, tx, field.ID, removed); err != nil {
		return nil, err
	}

	return valid, nil
}

// repairValues narrows stored values to the surviving option set: multiselect
// arrays are filtered (nulled when emptied), select scalars outside the set
// are nulled. Only changed rows are written back.
func (s *Service) repairValues(ctx context.Context, tx *gorm.DB, field *domain.CustomField, targetIDs []snowflake.ID, valid map[string]bool) error {
	if len(targetIDs) == 0 {
		return nil
	}
	rows, err := s.repo.FindValuesByField(ctx, tx, field.ID, targetIDs)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	var changed []domain.CustomFieldValue
	for _, row := range rows {
		if row.Value == nil {
			continue
		}

		if field.FieldType == domain.FieldTypeMultiSelect {
			var values []string
			if err := json.Unmarshal([]byte(*row.Value), &values); err != nil {
				values = nil
			}
			filtered := values[:0]
			for _, v := range values {
				if valid[v] {
					filtered = append(filtered, v)
				}
			}
			if len(filtered) == len(values) {
				continue
			}
			row.Value = nil
			if len(filtered) > 0 {
				encoded, err := json.Marshal(filtered)
				if err != nil {
					return err
				}
				stored := string(encoded)
				row.Value = &stored
			}
		} else if valid[*row.Value] {
			continue
		} else {
			row.Value = nil
		}

		row.UpdatedAt = now
		changed = append(changed, row)
	}

	return s.repo.UpsertValues(ctx, tx, changed)
}

// propagateDefault writes the new default for every target that has no
// explicit non-null value. Targets holding a value are never overwritten.
func (s *Service) propagateDefault(ctx context.Context, tx *gorm.DB, field *domain.CustomField, targetIDs []snowflake.ID) error {
	rows, err := s.repo.FindValuesByField(ctx, tx, field.ID, targetIDs)
	if err != nil {
		return err
	}
	hasValue := make(map[snowflake.ID]bool, len(rows))
	for _, row := range rows {
		if row.Value != nil {
			hasValue[row.TargetID] = true
		}
	}

	encoded := encodeDefault(field)
	now := s.clock.Now()
	var staged []domain.CustomFieldValue
	for _, targetID := range targetIDs {
		if hasValue[targetID] {
			continue
		}
		stored := encoded
		staged = append(staged, domain.CustomFieldValue{
			ID:            s.genID.Generate(),
			TargetID:      targetID,
			CustomFieldID: field.ID,
			Value:         &stored,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return s.repo.UpsertValues(ctx, tx, staged)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return domain.ErrInvalidAccount
	}
	fieldID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	field, err := s.repo.FindByID(ctx, s.db, accountcontext.ScopeFor(account), fieldID)
	if err != nil {
		return err
	}
	if field == nil {
		return domain.ErrNotFound
	}

	// Deleting a definition cascades to its options and every value row
	// referencing it.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteValuesByField(ctx, tx, field.ID); err != nil {
			return err
		}
		if err := s.repo.DeleteOptionsByField(ctx, tx, field.ID); err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, tx, field.ID)
	})
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	fieldID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	field, err := s.repo.FindByID(ctx, s.db, accountcontext.ScopeFor(account), fieldID)
	if err != nil {
		return nil, err
	}
	if field == nil {
		return nil, domain.ErrNotFound
	}
	resp := toResponse(field)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	fields, err := s.repo.Find(ctx, s.db, accountcontext.ScopeFor(account), req)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(fields))
	for i := range fields {
		resp = append(resp, toResponse(&fields[i]))
	}
	return resp, nil
}

func (s *Service) LabelMap(ctx context.Context, targetModel string) (map[string]int64, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	return s.repo.LabelMap(ctx, s.db, accountcontext.ScopeFor(account), targetModel)
}

func toResponse(field *domain.CustomField) domain.Response {
	resp := domain.Response{
		ID:           field.ID.String(),
		AccountID:    field.AccountID.String(),
		Name:         field.Name,
		Label:        field.Label,
		DefaultValue: field.DefaultValue,
		FieldType:    field.FieldType,
		TargetModel:  field.TargetModel,
		CreatedAt:    field.CreatedAt,
		UpdatedAt:    field.UpdatedAt,
	}
	for _, option := range field.Options {
		resp.Options = append(resp.Options, domain.OptionResponse{
			ID:    option.ID.String(),
			Label: option.Label,
			Value: option.Value,
		})
	}
	return resp
}
