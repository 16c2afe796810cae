package usecase

import (
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/pii-vault/internal/crypto/domain"
	piiDomain "github.com/allisson/pii-vault/internal/pii/domain"
	appValidation "github.com/allisson/pii-vault/internal/validation"
)

// validateProtectInput validates a ProtectInput before any crypto work.
// Field-specific format rules apply on top of the generic ones: email and
// phone values are checked for plausible shape so a junk value never gets a
// blind-index entry nobody can ever match.
func validateProtectInput(input *piiDomain.ProtectInput) error {
	rules := []validation.Rule{
		validation.Required.Error("plaintext is required"),
		appValidation.NotBlank,
		validation.Length(1, 4096).Error("plaintext must be between 1 and 4096 characters"),
	}
	switch input.Field.Name {
	case cryptoDomain.FieldEmail.Name:
		rules = append(rules, trimmed(appValidation.Email))
	case cryptoDomain.FieldPhone.Name:
		rules = append(rules, trimmed(appValidation.E164Phone))
	}

	err := validation.ValidateStruct(input,
		validation.Field(&input.SubjectID,
			validation.By(requiredUUID("subject_id")),
		),
		validation.Field(&input.OwnerID,
			validation.By(requiredUUID("owner_id")),
		),
		validation.Field(&input.OwnerType,
			validation.Required.Error("owner_type is required"),
			validation.In(
				piiDomain.OwnerCustomer,
				piiDomain.OwnerPassenger,
				piiDomain.OwnerClaimNote,
			).Error("owner_type must be customer, passenger or claim_note"),
		),
		validation.Field(&input.Plaintext, rules...),
	)
	return appValidation.WrapValidationError(err)
}

// trimmed applies a format rule to the whitespace-trimmed value, matching the
// normalization the encryptor applies before storage.
func trimmed(rule validation.Rule) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, ok := value.(string)
		if !ok {
			return validation.NewError("validation_string_type", "must be a string")
		}
		return rule.Validate(strings.TrimSpace(s))
	})
}

// requiredUUID rejects the zero UUID.
func requiredUUID(name string) func(value interface{}) error {
	return func(value interface{}) error {
		id, ok := value.(uuid.UUID)
		if !ok || id == uuid.Nil {
			return validation.NewError("validation_uuid_required", name+" is required")
		}
		return nil
	}
}
