package models

import "time"

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Trips        []Trip    `json:"trips" bson:"trips"`
	ActiveTripID string    `json:"activeTripId,omitempty" bson:"active_trip_id,omitempty"`
	RefreshToken string    `json:"-" bson:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// ActiveTrip returns the trip named by ActiveTripID. Documents written before
// the pointer existed fall back to the most recently appended trip.
func (u *User) ActiveTrip() *Trip {
	if u.ActiveTripID != "" {
		if t := u.FindTrip(u.ActiveTripID); t != nil {
			return t
		}
	}
	if len(u.Trips) == 0 {
		return nil
	}
	return &u.Trips[len(u.Trips)-1]
}

// FindTrip returns the trip with the given id, or nil.
func (u *User) FindTrip(tripID string) *Trip {
	for i := range u.Trips {
		if u.Trips[i].ID == tripID {
			return &u.Trips[i]
		}
	}
	return nil
}
