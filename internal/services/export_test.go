package services

import "time"

func (ge *GameEngine) SetClock(now func() time.Time) {
	ge.now = now
}

func (s *AccountService) SetClock(now func() time.Time) {
	s.now = now
}

func (ge *GameEngine) ServerSeed() string {
	return ge.seed()
}

func (s *JWTService) SetClock(now func() time.Time) {
	s.now = now
}
