package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"diasporan-backend/internal/domain"
	"diasporan-backend/internal/infrastructure/database"
	"diasporan-backend/internal/pkg/apperror"
	"diasporan-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB *gorm.DB
}

// GetProfile returns the caller's profile, creating an empty one on first access.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID, email string) (*domain.Profile, error) {
	if userID == uuid.Nil {
		return nil, apperror.Unauthorized("Missing user ID")
	}
	var p domain.Profile
	err := s.DB.WithContext(ctx).
		Where(domain.Profile{UserID: userID}).
		Attrs(domain.Profile{Email: strings.ToLower(strings.TrimSpace(email))}).
		FirstOrCreate(&p).Error
	if err != nil {
		return nil, database.Classify(err)
	}
	return &p, nil
}

var allowedFields = map[string]bool{
	"full_name": true, "phone": true, "home_country": true, "current_city": true,
	"bio": true, "avatar_url": true, "preferences": true,
}

// UpdateProfile applies allowed fields from a partial JSON body. Unknown keys are
// ignored; a body with no allowed keys is rejected.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, email string, fields map[string]interface{}) (*domain.Profile, error) {
	if len(fields) == 0 {
		return nil, apperror.Validation(apperror.CodeValidation, "Missing update fields")
	}
	upd := make(map[string]interface{})
	for k, v := range fields {
		if allowedFields[k] {
			upd[k] = v
		}
	}
	if len(upd) == 0 {
		return nil, apperror.Validation(apperror.CodeValidation, "No valid update fields provided")
	}

	for k, v := range upd {
		if k == "preferences" {
			continue
		}
		str, ok := v.(string)
		if !ok && v != nil {
			return nil, apperror.Validation(apperror.CodeValidation, fmt.Sprintf("%s must be a string", k))
		}
		upd[k] = strings.TrimSpace(str)
	}
	if fn, ok := upd["full_name"].(string); ok {
		if !validation.IsValidFullname(fn) {
			return nil, apperror.Validation(apperror.CodeValidation, "Full name contains invalid characters")
		}
		upd["full_name"] = titleCaseAndNormalize(fn)
	}
	if ph, ok := upd["phone"].(string); ok && ph != "" && !validation.IsValidPhone(ph) {
		return nil, apperror.Validation(apperror.CodeValidation, "Invalid phone number")
	}
	if u, ok := upd["avatar_url"].(string); ok && u != "" && !validation.IsValidHTTPURL(u) {
		return nil, apperror.Validation(apperror.CodeValidation, "avatar_url must be an http(s) URL")
	}
	if b, ok := upd["bio"].(string); ok && len(b) > 1000 {
		return nil, apperror.Validation(apperror.CodeValidation, "bio must be at most 1000 characters")
	}
	if prefs, ok := upd["preferences"]; ok {
		if _, isObj := prefs.(map[string]interface{}); !isObj && prefs != nil {
			return nil, apperror.Validation(apperror.CodeValidation, "preferences must be an object")
		}
		raw, err := json.Marshal(prefs)
		if err != nil {
			return nil, apperror.Validation(apperror.CodeValidation, "preferences must be an object")
		}
		upd["preferences"] = datatypes.JSON(raw)
	}

	if _, err := s.GetProfile(ctx, userID, email); err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&domain.Profile{}).Where("user_id = ?", userID).Updates(upd).Error; err != nil {
		return nil, database.Classify(err)
	}
	var p domain.Profile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, database.Classify(err)
	}
	return &p, nil
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
