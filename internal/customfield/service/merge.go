package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/customfield/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Merge reconciles submitted attribute entries against the account's
// definitions for the target model. Explicit entries are validated and staged
// first, then defaults fill in the definitions the submission left out; the
// union is applied as one upsert batch keyed by (target_id, custom_field_id).
// A single invalid option aborts the whole merge with nothing written.
func (s *Service) Merge(ctx context.Context, targetModel string, targetID snowflake.ID, entries []domain.Entry) (map[string]any, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	fields, err := s.repo.Find(ctx, s.db, accountcontext.Scope{AccountID: account.ID}, domain.ListRequest{TargetModel: targetModel})
	if err != nil {
		return nil, err
	}

	byLabel := make(map[string]*domain.CustomField, len(fields))
	for i := range fields {
		byLabel[fields[i].Label] = &fields[i]
	}

	now := s.clock.Now()
	staged := make(map[snowflake.ID]domain.CustomFieldValue)
	extras := make(map[string]any)
	provided := make(map[snowflake.ID]bool)

	for _, entry := range entries {
		field, known := byLabel[entry.Name]
		if !known {
			// Entries without a matching definition are ignored, not
			// rejected; unrelated payload keys pass through here.
			continue
		}
		stored, decoded, err := encodeEntry(field, entry.Value)
		if err != nil {
			return nil, err
		}
		staged[field.ID] = s.newValueRow(field.ID, targetID, &stored, now)
		extras[field.Label] = decoded
		provided[field.ID] = true
	}

	for i := range fields {
		field := &fields[i]
		if provided[field.ID] || field.DefaultValue == nil {
			continue
		}
		stored := encodeDefault(field)
		staged[field.ID] = s.newValueRow(field.ID, targetID, &stored, now)
		extras[field.Label] = decodeStored(field.FieldType, &stored)
	}

	rows := make([]domain.CustomFieldValue, 0, len(staged))
	for _, row := range staged {
		rows = append(rows, row)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpsertValues(ctx, tx, rows); err != nil {
			return err
		}
		return s.repo.TouchTarget(ctx, tx, targetModel, targetID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("attributes merged",
		zap.String("target_model", targetModel),
		zap.String("target_id", targetID.String()),
		zap.Int("values", len(rows)),
	)
	return extras, nil
}

// LoadValues resolves stored attributes for a batch of entities, keyed by
// target id then definition label. Multiselect values come back decoded.
func (s *Service) LoadValues(ctx context.Context, targetModel string, targetIDs []snowflake.ID) (map[snowflake.ID]map[string]any, error) {
	if len(targetIDs) == 0 {
		return map[snowflake.ID]map[string]any{}, nil
	}
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	rows, err := s.repo.FindLoadedValues(ctx, s.db, accountcontext.ScopeFor(account), targetModel, targetIDs)
	if err != nil {
		return nil, err
	}

	loaded := make(map[snowflake.ID]map[string]any, len(targetIDs))
	for _, row := range rows {
		extras, ok := loaded[row.TargetID]
		if !ok {
			extras = make(map[string]any)
			loaded[row.TargetID] = extras
		}
		extras[row.Label] = decodeStored(row.FieldType, row.Value)
	}
	return loaded, nil
}

func (s *Service) DeleteValues(ctx context.Context, targetID snowflake.ID) error {
	return s.repo.DeleteValuesByTarget(ctx, s.db, targetID)
}

func (s *Service) newValueRow(fieldID, targetID snowflake.ID, value *string, now time.Time) domain.CustomFieldValue {
	return domain.CustomFieldValue{
		ID:            s.genID.Generate(),
		TargetID:      targetID,
		CustomFieldID: fieldID,
		Value:         value,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// encodeEntry validates and serializes one submitted value. Multiselect
// values are normalized to an array and stored in JSON form even when a
// single scalar was supplied; everything else is stored as its scalar string.
func encodeEntry(field *domain.CustomField, raw any) (string, any, error) {
	switch field.FieldType {
	case domain.FieldTypeMultiSelect:
		values := toStringSlice(raw)
		allowed := field.OptionValues()
		if !subset(values, allowed) {
			return "", nil, &domain.InvalidOptionError{Field: field.Label, Allowed: allowed}
		}
		encoded, err := json.Marshal(values)
		if err != nil {
			return "", nil, err
		}
		return string(encoded), values, nil
	case domain.FieldTypeSelect:
		value := scalarString(raw)
		allowed := field.OptionValues()
		if !subset([]string{value}, allowed) {
			return "", nil, &domain.InvalidOptionError{Field: field.Label, Allowed: allowed}
		}
		return value, value, nil
	default:
		value := scalarString(raw)
		return value, value, nil
	}
}

// encodeDefault serializes a definition's default value the same way an
// explicit entry would be stored.
func encodeDefault(field *domain.CustomField) string {
	if field.DefaultValue == nil {
		return ""
	}
	if field.FieldType == domain.FieldTypeMultiSelect {
		encoded, err := json.Marshal([]string{*field.DefaultValue})
		if err == nil {
			return string(encoded)
		}
	}
	return *field.DefaultValue
}

// decodeStored maps a stored value back to its public form: multiselect
// JSON arrays are decoded, everything else passes through.
func decodeStored(fieldType domain.FieldType, stored *string) any {
	if stored == nil {
		return nil
	}
	if fieldType == domain.FieldTypeMultiSelect {
		var values []string
		if err := json.Unmarshal([]byte(*stored), &values); err == nil {
			return values
		}
	}
	return *stored
}

func toStringSlice(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			values = append(values, scalarString(item))
		}
		return values
	default:
		return []string{scalarString(raw)}
	}
}

func scalarString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(encoded)
	}
}

func subset(values, allowed []string) bool {
	set := make(map[string]bool, len(allowed))
	for _, v := range allowed {
		set[v] = true
	}
	for _, v := range values {
		if !set[v] {
			return false
		}
	}
	return true
}
