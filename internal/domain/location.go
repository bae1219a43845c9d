package domain

import "time"

type Location struct {
	LocationID    string    `json:"id" db:"id" dynamodbav:"location_id"`
	Name          string    `json:"name" db:"name" dynamodbav:"name"`
	Address       string    `json:"address" db:"address" dynamodbav:"address"`
	ContactPerson *string   `json:"contact_person" db:"contact_person" dynamodbav:"contact_person,omitempty"`
	PhoneNumber   *string   `json:"phone_number" db:"phone_number" dynamodbav:"phone_number,omitempty"`
	Latitude      *float64  `json:"latitude" db:"latitude" dynamodbav:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude" db:"longitude" dynamodbav:"longitude,omitempty"`
	CreatedAt     time.Time `json:"created_at" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at" dynamodbav:"updated_at"`
}

func (l *Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

type CreateLocationRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Address       string   `json:"address" validate:"required,max=500"`
	ContactPerson *string  `json:"contact_person"`
	PhoneNumber   *string  `json:"phone_number"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type UpdateLocationRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Address       *string  `json:"address" validate:"omitempty,min=1,max=500"`
	ContactPerson *string  `json:"contact_person"`
	PhoneNumber   *string  `json:"phone_number"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type NearestLocation struct {
	Location   *Location `json:"location"`
	DistanceKM float64   `json:"distance_km"`
}
