// Package service реализует бизнес-логику маркетплейса курсов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/coursehub-system/internal/model"
	"github.com/mmeshcher/coursehub-system/internal/paypal"
	"github.com/mmeshcher/coursehub-system/internal/repository"
)

// ErrInvalidCredentials возвращается при неверном email или пароле.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidCheckout возвращается при некорректных параметрах оформления заказа.
	ErrInvalidCheckout = errors.New("invalid checkout request")
	// ErrInvalidCapture возвращается при некорректных параметрах подтверждения оплаты.
	ErrInvalidCapture = errors.New("invalid capture request")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, userName, userEmail string, passwordHash []byte, role model.Role) (int64, error)
	GetUserByEmail(ctx context.Context, userEmail string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CreateCourse(ctx context.Context, c *model.Course) error
	GetCourses(ctx context.Context) ([]model.Course, error)
	GetCourseByID(ctx context.Context, id string) (*model.Course, error)
	UpdateCourse(ctx context.Context, c *model.Course) error
	DeleteCourse(ctx context.Context, id string) error
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByID(ctx context.Context, id string) (*model.Order, error)
	FinalizeOrder(ctx context.Context, orderID, paymentID, payerID string) (*model.Order, error)
	GetPurchasesByUser(ctx context.Context, userID int64) ([]model.Purchase, error)
}

// Gateway описывает контракт платёжного провайдера, используемый сервисом.
// Оркестратор не зависит от формы вызовов провайдера напрямую.
type Gateway interface {
	CreatePayment(ctx context.Context, pr paypal.PaymentRequest) (*paypal.CreatedPayment, error)
	ExecutePayment(ctx context.Context, paymentID, payerID, total, currency string) (*paypal.Receipt, error)
}

// Service содержит бизнес-логику маркетплейса курсов.
type Service struct {
	repo      Repository
	gateway   Gateway
	clientURL string
}

// NewService создаёт новый сервис с указанным репозиторием и платёжным клиентом.
func NewService(repo Repository, gateway Gateway, clientURL string) *Service {
	return &Service{
		repo:      repo,
		gateway:   gateway,
		clientURL: clientURL,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с хешированием пароля.
func (s *Service) RegisterUser(ctx context.Context, userName, userEmail, password string, role model.Role) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := s.repo.CreateUser(ctx, userName, userEmail, hash, role)
	if err != nil {
		return nil, err
	}

	return &model.User{
		ID:        id,
		UserName:  userName,
		UserEmail: userEmail,
		Role:      role,
	}, nil
}

// AuthenticateUser проверяет email и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, userEmail, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, userEmail)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Service) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// CreateCourse сохраняет новый курс преподавателя.
func (s *Service) CreateCourse(ctx context.Context, c *model.Course) (*model.Course, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	if err := s.repo.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCourses возвращает список всех курсов.
func (s *Service) GetCourses(ctx context.Context) ([]model.Course, error) {
	return s.repo.GetCourses(ctx)
}

// GetCourseByID возвращает курс вместе со списком записанных студентов.
func (s *Service) GetCourseByID(ctx context.Context, id string) (*model.Course, error) {
	return s.repo.GetCourseByID(ctx, id)
}

// UpdateCourse обновляет поля курса.
func (s *Service) UpdateCourse(ctx context.Context, c *model.Course) error {
	return s.repo.UpdateCourse(ctx, c)
}

// DeleteCourse удаляет курс.
func (s *Service) DeleteCourse(ctx context.Context, id string) error {
	return s.repo.DeleteCourse(ctx, id)
}

// GetPurchasesByUser возвращает купленные пользователем курсы.
func (s *Service) GetPurchasesByUser(ctx context.Context, userID int64) ([]model.Purchase, error) {
	return s.repo.GetPurchasesByUser(ctx, userID)
}
