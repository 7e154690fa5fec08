package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projpool/projpool/internal/apperrors"
	"github.com/projpool/projpool/internal/models"
	"github.com/projpool/projpool/internal/repository/postgres"
	"github.com/projpool/projpool/internal/service/auth/jwtmanager"
	"github.com/projpool/projpool/internal/testutil"
)

// Plain text hasher to keep tests fast
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain:" + password, nil }

func (plainHasher) Compare(hashed string, password string) error {
	if hashed != "plain:"+password {
		return apperrors.ErrInvalidCredentials
	}
	return nil
}

func Test_Auth(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Begin new db transaction and create new Service
	// Rollback transaction when test stops
	withTx := func(dbpool *pgxpool.Pool, t *testing.T, fn func(s *Service, m *jwtmanager.Manager)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)

			m, err := jwtmanager.New(
				jwtmanager.Config{SecretKey: "test-secret-key"},
				NewCallbacks(storage.Blocklist(), nil),
			)
			require.NoError(t, err, "jwt manager should be created without errors")

			s, err := NewService(Config{Hasher: plainHasher{}}, m, storage)
			require.NoError(t, err, "auth service could't be started")

			fn(s, m)
		})
	}

	t.Run("new service requires deps", func(t *testing.T) {
		_, err := NewService(Config{}, nil, nil)
		require.Error(t, err)
	})

	t.Run("Register", func(t *testing.T) {
		t.Run("new user ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *Service, _ *jwtmanager.Manager) {
				user, err := s.Register(t.Context(), "alice", "pwd")

				require.NoError(t, err, "registering new user should be ok")
				assert.Equal(t, "alice", user.Username)
				assert.Equal(t, "plain:pwd", user.HashedPassword)
			})
		})

		t.Run("fail if user exists", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *Service, _ *jwtmanager.Manager) {
				_, err := s.Register(t.Context(), "alice", "pwd")
				require.NoError(t, err, "no error has should happen if user not exists")

				_, err = s.Register(t.Context(), "alice", "other-pwd")

				require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
			})
		})
	})

	t.Run("Login", func(t *testing.T) {
		t.Run("ok", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
				user, err := s.Register(t.Context(), "alice", "pwd")
				require.NoError(t, err)

				pair, err := s.Login(t.Context(), "alice", "pwd")
				require.NoError(t, err)

				access, err := m.Decode(pair.Access.Value)
				require.NoError(t, err)
				assert.Equal(t, user.Identity(), access.Subject)
				assert.True(t, access.Fresh, "login issues fresh access token")
				assert.Equal(t, models.TokenTypeAccess, access.Type)

				refresh, err := m.Decode(pair.Refresh.Value)
				require.NoError(t, err)
				assert.Equal(t, models.TokenTypeRefresh, refresh.Type)
			})
		})

		t.Run("wrong password", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *Service, _ *jwtmanager.Manager) {
				_, err := s.Register(t.Context(), "alice", "pwd")
				require.NoError(t, err)

				_, err = s.Login(t.Context(), "alice", "wrong")

				require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			})
		})

		t.Run("unknown user", func(t *testing.T) {
			withTx(pg.Pool, t, func(s *Service, _ *jwtmanager.Manager) {
				_, err := s.Login(t.Context(), "nobody", "pwd")

				require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
			})
		})
	})

	t.Run("Refresh issues not fresh token", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
			_, err := s.Register(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			pair, err := s.Login(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			refreshClaims, err := m.Decode(pair.Refresh.Value)
			require.NoError(t, err)

			issued, err := s.Refresh(t.Context(), refreshClaims)
			require.NoError(t, err)

			claims, err := m.Decode(issued.Value)
			require.NoError(t, err)
			assert.False(t, claims.Fresh)
			assert.Equal(t, refreshClaims.Subject, claims.Subject)
		})
	})

	t.Run("Refresh for deleted user", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
			user, err := s.Register(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			issued, err := m.CreateRefreshToken(user.Identity())
			require.NoError(t, err)
			claims, err := m.Decode(issued.Value)
			require.NoError(t, err)
			require.NoError(t, s.DeleteUser(t.Context(), user.ID))

			_, err = s.Refresh(t.Context(), claims)

			require.ErrorIs(t, err, apperrors.ErrUserNotFound)
		})
	})

	t.Run("Logout revokes token", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
			user, err := s.Register(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			issued, err := m.CreateAccessToken(user.Identity(), true)
			require.NoError(t, err)
			claims, err := m.Decode(issued.Value)
			require.NoError(t, err)

			err = s.Logout(t.Context(), claims, "")
			require.NoError(t, err)

			revoked, err := s.storage.Blocklist().Contains(t.Context(), issued.JTI)
			require.NoError(t, err)
			assert.True(t, revoked)

			err = s.Logout(t.Context(), claims, "")
			require.NoError(t, err, "logout twice is ok")
		})
	})

	t.Run("Logout revokes access and refresh tokens together", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
			_, err := s.Register(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			pair, err := s.Login(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			claims, err := m.Decode(pair.Access.Value)
			require.NoError(t, err)

			err = s.Logout(t.Context(), claims, pair.Refresh.Value)
			require.NoError(t, err)

			for _, jti := range []string{pair.Access.JTI, pair.Refresh.JTI} {
				revoked, err := s.storage.Blocklist().Contains(t.Context(), jti)
				require.NoError(t, err)
				assert.True(t, revoked, "token %s has to be revoked", jti)
			}
		})
	})

	t.Run("Logout with refresh token of other user revokes nothing", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
			for _, name := range []string{"alice", "bob"} {
				_, err := s.Register(t.Context(), name, "pwd")
				require.NoError(t, err)
			}
			alice, err := s.Login(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			bob, err := s.Login(t.Context(), "bob", "pwd")
			require.NoError(t, err)
			claims, err := m.Decode(alice.Access.Value)
			require.NoError(t, err)

			tests := []struct {
				name    string
				refresh string
			}{
				{"other user", bob.Refresh.Value},
				{"access token instead of refresh", alice.Access.Value},
				{"garbage", "not-a-token"},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					err := s.Logout(t.Context(), claims, tt.refresh)

					require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
					revoked, err := s.storage.Blocklist().Contains(t.Context(), alice.Access.JTI)
					require.NoError(t, err)
					assert.False(t, revoked, "access token must stay valid")
				})
			}
		})
	})

	t.Run("Logout skips expired refresh token", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, m *jwtmanager.Manager) {
			user, err := s.Register(t.Context(), "alice", "pwd")
			require.NoError(t, err)
			issued, err := m.CreateAccessToken(user.Identity(), true)
			require.NoError(t, err)
			claims, err := m.Decode(issued.Value)
			require.NoError(t, err)

			expiring, err := jwtmanager.New(
				jwtmanager.Config{SecretKey: "test-secret-key", RefreshTTL: -time.Minute},
				NewCallbacks(s.storage.Blocklist(), nil),
			)
			require.NoError(t, err)
			expired, err := expiring.CreateRefreshToken(user.Identity())
			require.NoError(t, err)

			err = s.Logout(t.Context(), claims, expired.Value)
			require.NoError(t, err)

			revoked, err := s.storage.Blocklist().Contains(t.Context(), issued.JTI)
			require.NoError(t, err)
			assert.True(t, revoked)
			revoked, err = s.storage.Blocklist().Contains(t.Context(), expired.JTI)
			require.NoError(t, err)
			assert.False(t, revoked, "expired token needs no blocklist record")
		})
	})

	t.Run("Revoke rejects foreign subject", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, _ *jwtmanager.Manager) {
			claims := &jwtmanager.Claims{}
			claims.ID = uuid.NewString()
			claims.Subject = "not-a-number"

			err := s.Revoke(t.Context(), claims)

			require.Error(t, err)
		})
	})

	t.Run("GetUser", func(t *testing.T) {
		withTx(pg.Pool, t, func(s *Service, _ *jwtmanager.Manager) {
			user, err := s.Register(t.Context(), "alice", "pwd")
			require.NoError(t, err)

			got, err := s.GetUser(t.Context(), user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.ID, got.ID)
			assert.WithinDuration(t, time.Now(), got.CreatedAt, 5*time.Second)
		})
	})
}
