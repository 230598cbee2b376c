// Package mocks holds gomock doubles for the store and cache boundaries.
//
// Regenerate after changing an interface:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	users := mocks.NewMockUserStore(ctrl)
//	users.EXPECT().FindByUsername(gomock.Any(), "ann").Return(user, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_store_mock.go github.com/isdelr/ender-accounts/internal/store UserStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_mock.go github.com/isdelr/ender-accounts/internal/cache Cache
