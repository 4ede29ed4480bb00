package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tourdesk/backoffice/internal/domain"
	"github.com/tourdesk/backoffice/internal/repositories"
)

// DisplayPriority ranks version types for display. Higher sorts first.
func DisplayPriority(versionType domain.VersionType) int {
	switch versionType {
	case domain.VersionTypeSpecial:
		return 3
	case domain.VersionTypePromotion:
		return 2
	case domain.VersionTypeSeasonal:
		return 1
	default:
		return 0
	}
}

// EffectiveStatus evaluates the automatic transitions at now. Expiry overrides every stored status,
// inactive included; only a draft is promoted once its window opens.
func EffectiveStatus(version domain.TourVersion, now time.Time) domain.VersionStatus {
	if now.After(version.EndDate) {
		return domain.VersionStatusExpired
	}
	if version.Status == domain.VersionStatusDraft && !now.Before(version.StartDate) {
		return domain.VersionStatusActive
	}
	return version.Status
}

// ApplyLifecycle recomputes the derived fields of a version before it is saved.
func ApplyLifecycle(version *domain.TourVersion, now time.Time) {
	version.DisplayPriority = DisplayPriority(version.VersionType)
	version.Status = EffectiveStatus(*version, now)
}

// Overlaps reports closed-interval intersection of two version windows.
func Overlaps(a, b domain.TourVersion) bool {
	return !a.StartDate.After(b.EndDate) && !a.EndDate.Before(b.StartDate)
}

// VersionLifecycle validates version windows against stored siblings.
type VersionLifecycle struct {
	versions repositories.TourVersionRepository
}

// NewVersionLifecycle constructs the overlap validator.
func NewVersionLifecycle(versions repositories.TourVersionRepository) (*VersionLifecycle, error) {
	if versions == nil {
		return nil, errors.New("version lifecycle: version repository is required")
	}
	return &VersionLifecycle{versions: versions}, nil
}

// ValidateOverlap rejects version when an active or draft sibling of the same type has an intersecting
// window. Siblings of other types may overlap freely. Concurrent writers can still race past the check.
func (l *VersionLifecycle) ValidateOverlap(ctx context.Context, version domain.TourVersion) error {
	siblings, err := l.versions.ListSiblings(ctx, version.TourID, []domain.VersionStatus{domain.VersionStatusActive, domain.VersionStatusDraft})
	if err != nil {
		return translateRepoError(err, "tour", version.TourID)
	}

	var conflicting []string
	for _, existing := range siblings {
		if existing.ID == version.ID || existing.VersionType != version.VersionType {
			continue
		}
		if Overlaps(existing, version) {
			conflicting = append(conflicting, existing.ID)
		}
	}
	if len(conflicting) == 0 {
		return nil
	}
	sort.Strings(conflicting)
	return &VersionConflictError{VersionType: string(version.VersionType), ConflictingIDs: conflicting}
}
