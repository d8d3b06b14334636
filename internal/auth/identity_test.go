package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yourusername/pawsitive-placements/internal/session"
	"github.com/yourusername/pawsitive-placements/internal/users"
)

type stubFinder struct {
	users map[int64]*users.User
	err   error
	calls int
}

func (s *stubFinder) GetByID(_ context.Context, id int64) (*users.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.users[id], nil
}

func sessionWith(mutate func(*session.Data)) *session.Session {
	sess := session.New("sid", time.Now())
	sess.Update(mutate)
	return sess
}

func TestResolveAnonymous(t *testing.T) {
	r := NewResolver(&stubFinder{})

	assert.Equal(t, Identity{Role: RoleAnonymous}, r.Resolve(context.Background(), nil))
	assert.Equal(t, Identity{Role: RoleAnonymous}, r.Resolve(context.Background(), session.New("sid", time.Now())))
}

func TestResolveAdminTakesPrecedence(t *testing.T) {
	finder := &stubFinder{}
	r := NewResolver(finder)

	sess := sessionWith(func(d *session.Data) {
		d.UserValid = true
		d.UserID = 7
		d.AdminValid = true
		d.AdminID = 1
		d.AdminFirstName = "Lindsey"
	})

	identity := r.Resolve(context.Background(), sess)
	assert.Equal(t, RoleAdmin, identity.Role)
	assert.Equal(t, "Lindsey", identity.DisplayName)
	assert.True(t, identity.IsAdmin())
	assert.Zero(t, finder.calls)
}

func TestResolveAdminDefaultName(t *testing.T) {
	r := NewResolver(nil)
	identity := r.Resolve(context.Background(), sessionWith(func(d *session.Data) {
		d.AdminValid = true
		d.AdminID = 1
	}))
	assert.Equal(t, "Admin", identity.DisplayName)
}

func TestResolveUser(t *testing.T) {
	finder := &stubFinder{users: map[int64]*users.User{7: {ID: 7, Name: "Jamie Rivers"}}}
	r := NewResolver(finder)

	identity := r.Resolve(context.Background(), sessionWith(func(d *session.Data) {
		d.UserValid = true
		d.UserID = 7
	}))
	assert.Equal(t, RoleUser, identity.Role)
	assert.Equal(t, int64(7), identity.UserID)
	assert.Equal(t, "Jamie Rivers", identity.DisplayName)
	name, named := identity.RecordName()
	assert.True(t, named)
	assert.Equal(t, "Jamie Rivers", name)
	assert.True(t, identity.LoggedIn())
	assert.False(t, identity.IsAdmin())
}

func TestResolveUserFallbackName(t *testing.T) {
	cases := map[string]*stubFinder{
		"not found":    {users: map[int64]*users.User{}},
		"lookup error": {err: errors.New("db down")},
		"empty name":   {users: map[int64]*users.User{7: {ID: 7}}},
	}
	for name, finder := range cases {
		t.Run(name, func(t *testing.T) {
			identity := NewResolver(finder).Resolve(context.Background(), sessionWith(func(d *session.Data) {
				d.UserValid = true
				d.UserID = 7
			}))
			assert.Equal(t, RoleUser, identity.Role)
			assert.Equal(t, "User", identity.DisplayName)
			_, named := identity.RecordName()
			assert.False(t, named)
		})
	}
}

func TestResolverMiddlewareSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	finder := &stubFinder{users: map[int64]*users.User{7: {ID: 7, Name: "Jamie Rivers"}}}

	var seen Identity
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("session.current", sessionWith(func(d *session.Data) {
			d.UserValid = true
			d.UserID = 7
		}))
		c.Next()
	})
	router.Use(NewResolver(finder).Middleware())
	router.GET("/", func(c *gin.Context) {
		seen = IdentityFrom(c)
		// 二度目の参照でも再解決しない
		_ = IdentityFrom(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Jamie Rivers", seen.DisplayName)
	assert.Equal(t, 1, finder.calls)
}

func TestIdentityFromDefaultsToAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, RoleAnonymous, IdentityFrom(c).Role)
}
