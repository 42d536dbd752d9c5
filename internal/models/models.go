package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User is an account on the transit system. Role is admin, driver or user.
type User struct {
	BaseModel
	Email        string `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	Name         string `json:"name" gorm:"not null"`
	Phone        string `json:"phone"`
	Role         string `json:"role" gorm:"not null;default:user;index"`
}

// RefreshToken records an issued refresh token by its jti so it can be revoked
type RefreshToken struct {
	BaseModel
	UserID    string     `json:"userId" gorm:"not null;index"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"not null"`
	RevokedAt *time.Time `json:"revokedAt"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Active reports whether the token can still be exchanged
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// PasswordReset is a single-use reset token; the ID is the token itself
type PasswordReset struct {
	BaseModel
	UserID    string     `json:"userId" gorm:"not null;index"`
	ExpiresAt time.Time  `json:"expiresAt" gorm:"not null"`
	UsedAt    *time.Time `json:"usedAt"`

	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Usable reports whether the reset token can still be redeemed
func (p *PasswordReset) Usable(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}

// Route is a named line between two end points
type Route struct {
	BaseModel
	RouteNumber string  `json:"routeNumber" gorm:"uniqueIndex;not null"`
	RouteName   string  `json:"routeName" gorm:"not null"`
	StartPoint  string  `json:"startPoint" gorm:"not null"`
	EndPoint    string  `json:"endPoint" gorm:"not null"`
	DistanceKm  float64 `json:"distanceKm"`

	Stops []Stop `json:"-" gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
}

// Bus is a vehicle in the fleet. Route and driver assignments are optional.
type Bus struct {
	BaseModel
	BusNumber string  `json:"busNumber" gorm:"uniqueIndex;not null"`
	Capacity  int     `json:"capacity" gorm:"not null"`
	Status    string  `json:"status" gorm:"not null;default:active"`
	RouteID   *string `json:"routeId,omitempty" gorm:"index"`
	DriverID  *string `json:"driverId,omitempty" gorm:"index"`

	Route  *Route `json:"-" gorm:"foreignKey:RouteID;constraint:OnDelete:SET NULL"`
	Driver *User  `json:"-" gorm:"foreignKey:DriverID;constraint:OnDelete:SET NULL"`
}

// Stop is a point on a route
type Stop struct {
	BaseModel
	StopName             string     `json:"stopName" gorm:"not null"`
	RouteID              string     `json:"routeId" gorm:"not null;index"`
	Latitude             float64    `json:"latitude"`
	Longitude            float64    `json:"longitude"`
	Sequence             int        `json:"sequence"`
	ScheduledArrivalTime string     `json:"scheduledArrivalTime,omitempty"`
	ActualArrivalTime    *time.Time `json:"actualArrivalTime,omitempty"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	models := []any{
		&User{}, &RefreshToken{}, &PasswordReset{}, &Route{}, &Bus{}, &Stop{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}
