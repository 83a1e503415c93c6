package mocks

import (
	"github.com/stretchr/testify/mock"

	"blogapi/internal/auth"
)

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Sign(userID string, kind auth.TokenKind) (string, error) {
	args := m.Called(userID, kind)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) Verify(token string, kind auth.TokenKind) (*auth.Claims, error) {
	args := m.Called(token, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Claims), args.Error(1)
}
