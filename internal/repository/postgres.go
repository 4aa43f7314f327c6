// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/coursehub-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже занятым email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrCourseNotFound возвращается, если курс не найден.
	ErrCourseNotFound = errors.New("course not found")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure и Deadlocks; с
		// переподключением pgxpool справляется сам.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя.
func (r *PostgresRepository) CreateUser(ctx context.Context, userName, userEmail string, passwordHash []byte, role model.Role) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (user_name, user_email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		userName, userEmail, passwordHash, string(role),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, userEmail)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по адресу электронной почты.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, userEmail string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_name, user_email, password_hash, role, created_at FROM users WHERE user_email = $1`,
		userEmail,
	)
	return scanUser(row)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_name, user_email, password_hash, role, created_at FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role string
	err := row.Scan(&u.ID, &u.UserName, &u.UserEmail, &u.PasswordHash, &role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.Role = model.Role(role)
	return &u, nil
}

// CreateCourse сохраняет новый курс.
func (r *PostgresRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO courses (id, instructor_id, instructor_name, title, category, level, language,
		                      subtitle, description, image, welcome_message, pricing, objectives,
		                      is_published, curriculum, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		c.ID, c.InstructorID, c.InstructorName, c.Title, c.Category, c.Level, c.Language,
		c.Subtitle, c.Description, c.Image, c.WelcomeMessage, c.PricingCents, c.Objectives,
		c.IsPublished, c.Curriculum, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

const courseColumns = `id, instructor_id, instructor_name, title, category, level, language,
	subtitle, description, image, welcome_message, pricing, objectives, is_published, curriculum, created_at`

func scanCourse(row pgx.Row) (*model.Course, error) {
	var c model.Course
	err := row.Scan(&c.ID, &c.InstructorID, &c.InstructorName, &c.Title, &c.Category, &c.Level,
		&c.Language, &c.Subtitle, &c.Description, &c.Image, &c.WelcomeMessage, &c.PricingCents,
		&c.Objectives, &c.IsPublished, &c.Curriculum, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("scan course: %w", err)
	}
	return &c, nil
}

// GetCourses возвращает все курсы, отсортированные от новых к старым.
func (r *PostgresRepository) GetCourses(ctx context.Context) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select courses: %w", err)
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return courses, nil
}

// GetCourseByID возвращает курс вместе со списком записанных студентов.
func (r *PostgresRepository) GetCourseByID(ctx context.Context, id string) (*model.Course, error) {
	c, err := scanCourse(r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id,
	))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT student_id, student_name, student_email, paid
		 FROM course_students
		 WHERE course_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select course students: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.EnrolledStudent
		if err := rows.Scan(&s.StudentID, &s.StudentName, &s.StudentEmail, &s.PaidCents); err != nil {
			return nil, fmt.Errorf("scan course student: %w", err)
		}
		c.Students = append(c.Students, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return c, nil
}

// UpdateCourse обновляет все редактируемые поля курса.
func (r *PostgresRepository) UpdateCourse(ctx context.Context, c *model.Course) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE courses
		 SET title = $2, category = $3, level = $4, language = $5, subtitle = $6,
		     description = $7, image = $8, welcome_message = $9, pricing = $10,
		     objectives = $11, is_published = $12, curriculum = $13
		 WHERE id = $1`,
		c.ID, c.Title, c.Category, c.Level, c.Language, c.Subtitle,
		c.Description, c.Image, c.WelcomeMessage, c.PricingCents,
		c.Objectives, c.IsPublished, c.Curriculum,
	)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// DeleteCourse удаляет курс по идентификатору.
func (r *PostgresRepository) DeleteCourse(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCourseNotFound
	}
	return nil
}

// CreateOrder сохраняет новый заказ в состоянии pending/created.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, user_name, user_email, instructor_id, instructor_name,
		                     course_id, course_title, course_image, price, payment_method,
		                     payment_status, order_status, payment_id, payer_id, order_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.UserID, o.UserName, o.UserEmail, o.InstructorID, o.InstructorName,
		o.CourseID, o.CourseTitle, o.CourseImage, o.PriceCents, o.PaymentMethod,
		string(o.PaymentStatus), string(o.OrderStatus), o.PaymentID, o.PayerID, o.OrderDate,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const orderColumns = `id, user_id, user_name, user_email, instructor_id, instructor_name,
	course_id, course_title, course_image, price, payment_method, payment_status,
	order_status, payment_id, payer_id, order_date`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var paymentStatus, orderStatus string
	err := row.Scan(&o.ID, &o.UserID, &o.UserName, &o.UserEmail, &o.InstructorID, &o.InstructorName,
		&o.CourseID, &o.CourseTitle, &o.CourseImage, &o.PriceCents, &o.PaymentMethod,
		&paymentStatus, &orderStatus, &o.PaymentID, &o.PayerID, &o.OrderDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.PaymentStatus = model.PaymentStatus(paymentStatus)
	o.OrderStatus = model.OrderStatus(orderStatus)
	return &o, nil
}

// GetOrderByID возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	return scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	))
}

// FinalizeOrder переводит заказ в paid/confirmed и записывает покупку в
// список курсов пользователя и студента в список слушателей курса.
// Все три изменения выполняются в одной транзакции: либо заказ подтверждён
// и пользователь записан, либо ничего не изменилось. Повторное подтверждение
// того же заказа не создаёт дублей записей.
func (r *PostgresRepository) FinalizeOrder(ctx context.Context, orderID, paymentID, payerID string) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		order, err = scanOrder(tx.QueryRow(ctx,
			`UPDATE orders
			 SET payment_status = $2, order_status = $3, payment_id = $4, payer_id = $5
			 WHERE id = $1
			 RETURNING `+orderColumns,
			orderID, string(model.PaymentStatusPaid), string(model.OrderStatusConfirmed), paymentID, payerID,
		))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO purchases (user_id, course_id, title, instructor_id, instructor_name, course_image, price, purchased_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (user_id, course_id) DO NOTHING`,
			order.UserID, order.CourseID, order.CourseTitle, order.InstructorID,
			order.InstructorName, order.CourseImage, order.PriceCents, order.OrderDate,
		)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO course_students (course_id, student_id, student_name, student_email, paid)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (course_id, student_id) DO NOTHING`,
			order.CourseID, order.UserID, order.UserName, order.UserEmail, order.PriceCents,
		)
		if err != nil {
			return fmt.Errorf("insert course student: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// GetPurchasesByUser возвращает купленные пользователем курсы.
func (r *PostgresRepository) GetPurchasesByUser(ctx context.Context, userID int64) ([]model.Purchase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT course_id, title, instructor_id, instructor_name, course_image, price, purchased_at
		 FROM purchases
		 WHERE user_id = $1
		 ORDER BY purchased_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	defer rows.Close()

	var res []model.Purchase
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.CourseID, &p.Title, &p.InstructorID, &p.InstructorName,
			&p.CourseImage, &p.PriceCents, &p.PurchasedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		res = append(res, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
