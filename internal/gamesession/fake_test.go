package gamesession_test

import (
	"context"
	"sync"
	"time"

	"learn-and-earn/internal/models"
)

type fakeAPI struct {
	mu sync.Mutex

	profile    models.Profile
	profileErr error

	lottery    *models.PlayFreeResponse
	lotteryErr error
	dino       *models.DinoPlayResponse
	dinoErr    error
	unlock     *models.UnlockResponse
	unlockErr  error
	// afterUnlock replaces profile once an unlock succeeds.
	afterUnlock *models.Profile

	// block makes plays wait for ctx cancellation.
	block bool

	called chan struct{}

	profileCalls int
	playCalls    int
	unlockCalls  int
	scores       []int
}

func newFakeAPI(profile models.Profile) *fakeAPI {
	return &fakeAPI{profile: profile, called: make(chan struct{}, 8)}
}

func (f *fakeAPI) Profile(ctx context.Context) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	p := f.profile
	return &p, nil
}

func (f *fakeAPI) enter() bool {
	f.mu.Lock()
	f.playCalls++
	block := f.block
	f.mu.Unlock()
	f.called <- struct{}{}
	return block
}

func (f *fakeAPI) PlayLottery(ctx context.Context, email string) (*models.PlayFreeResponse, error) {
	if f.enter() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lottery, f.lotteryErr
}

func (f *fakeAPI) PlayDino(ctx context.Context, email string, score int) (*models.DinoPlayResponse, error) {
	if f.enter() {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, score)
	return f.dino, f.dinoErr
}

func (f *fakeAPI) Unlock(ctx context.Context, email string) (*models.UnlockResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlockCalls++
	if f.unlockErr != nil {
		return nil, f.unlockErr
	}
	if f.afterUnlock != nil {
		f.profile = *f.afterUnlock
	}
	return f.unlock, nil
}

func (f *fakeAPI) counts() (profile, play, unlock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profileCalls, f.playCalls, f.unlockCalls
}

func unlockedProfile(now time.Time, remaining int, tokens int64) models.Profile {
	next := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	return models.Profile{
		Email:      "ann@example.com",
		Tokens:     tokens,
		Balance:    10,
		UnlockDate: models.TimePtr(now.Add(24 * time.Hour)),
		Games: map[models.GameID]models.Allowance{
			models.GameLottery: {RemainingToday: remaining, NextResetAt: next},
			models.GameDino:    {RemainingToday: remaining, NextResetAt: next},
		},
	}
}
