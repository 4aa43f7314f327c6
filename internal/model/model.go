// Package model содержит доменные сущности маркетплейса курсов.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID           int64
	UserName     string
	UserEmail    string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}

// CurriculumItem описывает одну лекцию в программе курса.
type CurriculumItem struct {
	Title       string `json:"title"`
	VideoURL    string `json:"videoUrl"`
	FreePreview bool   `json:"freePreview"`
}

// EnrolledStudent описывает запись студента в списке слушателей курса.
type EnrolledStudent struct {
	StudentID    int64
	StudentName  string
	StudentEmail string
	PaidCents    int64
}

// Course описывает курс, созданный преподавателем.
type Course struct {
	ID             string
	InstructorID   int64
	InstructorName string
	Title          string
	Category       string
	Level          string
	Language       string
	Subtitle       string
	Description    string
	Image          string
	WelcomeMessage string
	PricingCents   int64
	Objectives     string
	IsPublished    bool
	Curriculum     []CurriculumItem
	Students       []EnrolledStudent
	CreatedAt      time.Time
}

// PaymentStatus описывает состояние оплаты заказа.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// OrderStatus описывает состояние заказа.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusConfirmed OrderStatus = "confirmed"
)

// Order описывает попытку покупки курса. Заказ создаётся в состоянии
// pending/created и ровно один раз переводится в paid/confirmed при
// подтверждении оплаты.
type Order struct {
	ID             string
	UserID         int64
	UserName       string
	UserEmail      string
	InstructorID   int64
	InstructorName string
	CourseID       string
	CourseTitle    string
	CourseImage    string
	PriceCents     int64
	PaymentMethod  string
	PaymentStatus  PaymentStatus
	OrderStatus    OrderStatus
	PaymentID      string
	PayerID        string
	OrderDate      time.Time
}

// Purchase описывает купленный курс в списке покупок пользователя.
type Purchase struct {
	CourseID       string
	Title          string
	InstructorID   int64
	InstructorName string
	CourseImage    string
	PriceCents     int64
	PurchasedAt    time.Time
}
