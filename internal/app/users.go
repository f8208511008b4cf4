package app

import (
	"time"

	"biosync/pkg/domain"
)

// CurrentUser returns the presence row for identity, marking it online
// as a side effect of the client checking in. Absence means the
// identity has not onboarded yet.
func (a *App) CurrentUser(identity string) (domain.User, bool, error) {
	user, found, err := a.store.GetUser(identity)
	if err != nil || !found {
		return domain.User{}, found, err
	}
	if err := a.store.SetUserStatus(identity, domain.StatusOnline); err != nil {
		return domain.User{}, false, err
	}
	user.Status = domain.StatusOnline
	return user, true, nil
}

// Onboard creates (or refreshes) the presence row with the
// accessibility flag chosen during onboarding.
func (a *App) Onboard(identity string, isParalyzed bool) (domain.User, error) {
	user := domain.User{
		Identity:    identity,
		Status:      domain.StatusOnline,
		IsParalyzed: isParalyzed,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
