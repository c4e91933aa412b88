package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"

	"github.com/ripplefeed/backend/internal/engagement"
	"github.com/ripplefeed/backend/internal/models"
	"github.com/ripplefeed/backend/internal/repositories"
	"github.com/ripplefeed/backend/pkg/validators"
)

// fakeEngagementStore is an in-memory engagement.Store with the guarded
// semantics of the Mongo implementation.
type fakeEngagementStore struct {
	mu       sync.Mutex
	posts    map[string]string // postID -> authorID
	deleted  map[string]bool
	likes    map[string][]string
	comments map[string][]models.Comment
}

func newFakeEngagementStore() *fakeEngagementStore {
	return &fakeEngagementStore{
		posts:    make(map[string]string),
		deleted:  make(map[string]bool),
		likes:    make(map[string][]string),
		comments: make(map[string][]models.Comment),
	}
}

func (s *fakeEngagementStore) addPost(id, authorID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[id] = authorID
}

func (s *fakeEngagementStore) FindPost(ctx context.Context, postID string) (*engagement.PostRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.HasPrefix(postID, "bad") {
		return nil, engagement.ErrInvalidInput
	}
	author, ok := s.posts[postID]
	if !ok || s.deleted[postID] {
		return nil, engagement.ErrNotFound
	}
	return &engagement.PostRef{ID: postID, AuthorID: author}, nil
}

func (s *fakeEngagementStore) AddLike(ctx context.Context, postID, userID string) (engagement.LikeDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.likes[postID]
	for _, u := range users {
		if u == userID {
			return engagement.LikeDelta{Count: int64(len(users)), Applied: false}, nil
		}
	}
	s.likes[postID] = append(users, userID)
	return engagement.LikeDelta{Count: int64(len(users) + 1), Applied: true}, nil
}

func (s *fakeEngagementStore) RemoveLike(ctx context.Context, postID, userID string) (engagement.LikeDelta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.likes[postID]
	for i, u := range users {
		if u == userID {
			s.likes[postID] = append(users[:i:i], users[i+1:]...)
			return engagement.LikeDelta{Count: int64(len(users) - 1), Applied: true}, nil
		}
	}
	return engagement.LikeDelta{Count: int64(len(users)), Applied: false}, nil
}

func (s *fakeEngagementStore) LikeState(ctx context.Context, postID, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := s.likes[postID]
	liked := false
	for _, u := range users {
		if u == userID && userID != "" {
			liked = true
		}
	}
	return int64(len(users)), liked, nil
}

func (s *fakeEngagementStore) AppendComment(ctx context.Context, postID, authorID, content string) (*models.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := models.Comment{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.comments[postID] = append(s.comments[postID], c)
	return &c, int64(len(s.comments[postID])), nil
}

func (s *fakeEngagementStore) FindComment(ctx context.Context, postID, commentID string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.comments[postID] {
		if c.ID.Hex() == commentID {
			out := c
			return &out, nil
		}
	}
	return nil, engagement.ErrNotFound
}

func (s *fakeEngagementStore) RemoveComment(ctx context.Context, postID, commentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.comments[postID]
	for i, c := range list {
		if c.ID.Hex() == commentID {
			s.comments[postID] = append(list[:i:i], list[i+1:]...)
			return int64(len(list) - 1), nil
		}
	}
	return 0, engagement.ErrNotFound
}

func (s *fakeEngagementStore) Comments(ctx context.Context, postID string) ([]models.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]models.Comment(nil), s.comments[postID]...)
	return list, int64(len(list)), nil
}

func (s *fakeEngagementStore) EngagementCounts(ctx context.Context, postIDs []string, callerID string) (map[string]engagement.Counts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]engagement.Counts, len(postIDs))
	for _, id := range postIDs {
		c := engagement.Counts{
			LikeCount:    int64(len(s.likes[id])),
			CommentCount: int64(len(s.comments[id])),
		}
		for _, u := range s.likes[id] {
			if u == callerID && callerID != "" {
				c.LikedByCaller = true
			}
		}
		out[id] = c
	}
	return out, nil
}

// fakePostRepo is an in-memory PostRepository.
type fakePostRepo struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*models.Post)}
}

func (r *fakePostRepo) seed(authorID, content string) *models.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.posts[post.ID.Hex()] = post
	return post
}

func (r *fakePostRepo) CreatePost(ctx context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now()
	post.UpdatedAt = time.Now()
	r.posts[post.ID.Hex()] = post
	return nil
}

func (r *fakePostRepo) GetPostByID(ctx context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return nil, repositories.ErrPostNotFound
	}
	out := *post
	return &out, nil
}

func (r *fakePostRepo) GetPostsByAuthorID(ctx context.Context, authorID string, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Post
	for _, p := range r.posts {
		if p.AuthorID == authorID && !p.IsDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) GetAllPosts(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Post
	for _, p := range r.posts {
		if !p.IsDeleted {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) CountPosts(ctx context.Context) (int64, error) {
	posts, _ := r.GetAllPosts(ctx, 0, 0)
	return int64(len(posts)), nil
}

func (r *fakePostRepo) CountPostsByAuthorID(ctx context.Context, authorID string) (int64, error) {
	posts, _ := r.GetPostsByAuthorID(ctx, authorID, 0, 0)
	return int64(len(posts)), nil
}

func (r *fakePostRepo) UpdatePostContent(ctx context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return repositories.ErrPostNotFound
	}
	post.Content = content
	post.UpdatedAt = time.Now()
	return nil
}

func (r *fakePostRepo) SoftDeletePost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.IsDeleted {
		return repositories.ErrPostNotFound
	}
	post.IsDeleted = true
	post.UpdatedAt = time.Now()
	return nil
}

func (r *fakePostRepo) ListExpiredDeleted(ctx context.Context, before time.Time, limit int64) ([]models.Post, error) {
	return nil, nil
}

func (r *fakePostRepo) HardDeletePost(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, id)
	return nil
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[uint]*models.User)}
}

func (r *fakeUserRepo) CreateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := *user
	return &out, nil
}

func (r *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.FirebaseUID == firebaseUID {
			out := *u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetUsersByIDs(ids []uint) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateUser(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

// fakeNotificationRepo records created notifications.
type fakeNotificationRepo struct {
	mu      sync.Mutex
	created []models.Notification
}

func (r *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *n)
	return nil
}

func (r *fakeNotificationRepo) GetByRecipientID(recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.created {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeNotificationRepo) GetUnreadCount(recipientID uint) (int64, error) {
	_, total, _ := r.GetByRecipientID(recipientID, 1, 100)
	return total, nil
}

func (r *fakeNotificationRepo) MarkAsRead(notificationID, recipientID uint) error { return nil }
func (r *fakeNotificationRepo) MarkAllAsRead(recipientID uint) error              { return nil }

func (r *fakeNotificationRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

// newTestEcho builds an echo instance configured like production.
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validators.NewValidator()
	return e
}

// newTestContext builds a request context. userID 0 means anonymous.
func newTestContext(e *echo.Echo, method, target string, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user", &models.JwtCustomClaims{UserID: userID})
	}
	return c, rec
}
