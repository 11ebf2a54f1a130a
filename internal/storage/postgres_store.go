package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/ridelink/internal/models"
	"github.com/example/ridelink/internal/state"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already opened handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Close() error { return p.db.Close() }

const upsertUser = `INSERT INTO users(id, name, email, password_hash, avatar_url, gender, verification_type, is_verified, trust_score, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, avatar_url=EXCLUDED.avatar_url, is_verified=EXCLUDED.is_verified, trust_score=EXCLUDED.trust_score`

const insertReview = `INSERT INTO reviews(id, driver_id, ride_id, rater_id, rating, comment, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (id) DO NOTHING`

func (p *PostgresStore) SaveUser(ctx context.Context, u models.User) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertUser,
		u.ID, u.Name, u.Email, u.PasswordHash, u.AvatarURL, string(u.Gender), string(u.VerificationType), u.IsVerified, u.TrustScore, u.CreatedAt); err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	for _, r := range u.Reviews {
		if _, err := tx.ExecContext(ctx, insertReview, r.ID, u.ID, r.RideID, r.RaterID, r.Rating, r.Comment, r.CreatedAt); err != nil {
			return fmt.Errorf("save review %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertRide = `INSERT INTO rides(id, driver_id, origin, destination, departure_date, departure_time, arrival_time, price_per_seat, available_seats, car_make, car_model, car_color, car_plate, car_type, amenities, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (id) DO UPDATE SET available_seats=EXCLUDED.available_seats`

const upsertBooking = `INSERT INTO bookings(id, ride_id, passenger_id, seats, amount, payment_ref, status, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`

func saveRide(ctx context.Context, ex execer, r models.Ride) error {
	_, err := ex.ExecContext(ctx, upsertRide,
		r.ID, r.DriverID, r.From, r.To, r.DepartureDate, r.DepartureTime, r.EstimatedArrivalTime, r.PricePerSeat, r.AvailableSeats,
		r.Car.Make, r.Car.Model, r.Car.Color, r.Car.PlateNumber, string(r.Car.Type), pq.Array(r.Amenities), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("save ride %s: %w", r.ID, err)
	}
	return nil
}

func saveBooking(ctx context.Context, ex execer, b models.Booking) error {
	_, err := ex.ExecContext(ctx, upsertBooking,
		b.ID, b.RideID, b.PassengerID, b.Seats, b.Amount, b.PaymentRef, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save booking %s: %w", b.ID, err)
	}
	return nil
}

func (p *PostgresStore) SaveRide(ctx context.Context, r models.Ride) error {
	return saveRide(ctx, p.db, r)
}

// SaveReview appends a review and stores the recomputed score atomically.
func (p *PostgresStore) SaveReview(ctx context.Context, driverID string, r models.Rating, trustScore float64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertReview, r.ID, driverID, r.RideID, r.RaterID, r.Rating, r.Comment, r.CreatedAt); err != nil {
		return fmt.Errorf("save review %s: %w", r.ID, err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE users SET trust_score=$1 WHERE id=$2`, trustScore, driverID)
	if err != nil {
		return fmt.Errorf("update trust score %s: %w", driverID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update trust score %s: %w", driverID, state.ErrUserNotFound)
	}
	return tx.Commit()
}

func (p *PostgresStore) SaveBooking(ctx context.Context, b models.Booking) error {
	return saveBooking(ctx, p.db, b)
}

// SaveBookingWithRide writes a booking and the ride's seat count in one
// transaction.
func (p *PostgresStore) SaveBookingWithRide(ctx context.Context, b models.Booking, r models.Ride) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveBooking(ctx, tx, b); err != nil {
		return err
	}
	if err := saveRide(ctx, tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) SaveMessage(ctx context.Context, m models.Message) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO messages(id, ride_id, sender_id, body, sent_at) VALUES($1,$2,$3,$4,$5)`,
		m.ID, m.RideID, m.SenderID, m.Text, m.Timestamp)
	if err != nil {
		return fmt.Errorf("save message %s: %w", m.ID, err)
	}
	return nil
}

func (p *PostgresStore) Load(ctx context.Context) (state.State, error) {
	var s state.State
	var err error
	if s.Users, err = p.loadUsers(ctx); err != nil {
		return s, err
	}
	if s.Rides, err = p.loadRides(ctx); err != nil {
		return s, err
	}
	if s.Bookings, err = p.loadBookings(ctx); err != nil {
		return s, err
	}
	msgs, err := p.loadMessages(ctx)
	if err != nil {
		return s, err
	}
	s.Conversations = groupMessages(msgs)
	return s, nil
}

func (p *PostgresStore) loadUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, email, password_hash, avatar_url, gender, verification_type, is_verified, trust_score, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	pos := map[string]int{}
	for rows.Next() {
		var u models.User
		var gender, vt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AvatarURL, &gender, &vt, &u.IsVerified, &u.TrustScore, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Gender = models.Gender(gender)
		u.VerificationType = models.VerificationType(vt)
		u.Reviews = []models.Rating{}
		pos[u.ID] = len(users)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rrows, err := p.db.QueryContext(ctx, `SELECT id, driver_id, ride_id, rater_id, rating, comment, created_at FROM reviews ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	defer rrows.Close()
	for rrows.Next() {
		var r models.Rating
		var driverID string
		if err := rrows.Scan(&r.ID, &driverID, &r.RideID, &r.RaterID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		if i, ok := pos[driverID]; ok {
			users[i].Reviews = append(users[i].Reviews, r)
		}
	}
	return users, rrows.Err()
}

func (p *PostgresStore) loadRides(ctx context.Context) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, driver_id, origin, destination, departure_date, departure_time, arrival_time, price_per_seat, available_seats, car_make, car_model, car_color, car_plate, car_type, amenities, created_at FROM rides ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("load rides: %w", err)
	}
	defer rows.Close()

	var rides []models.Ride
	for rows.Next() {
		var r models.Ride
		var carType string
		if err := rows.Scan(&r.ID, &r.DriverID, &r.From, &r.To, &r.DepartureDate, &r.DepartureTime, &r.EstimatedArrivalTime,
			&r.PricePerSeat, &r.AvailableSeats, &r.Car.Make, &r.Car.Model, &r.Car.Color, &r.Car.PlateNumber, &carType,
			pq.Array(&r.Amenities), &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		r.Car.Type = models.CarType(carType)
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

func (p *PostgresStore) loadBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, ride_id, passenger_id, seats, amount, payment_ref, status, created_at, updated_at FROM bookings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		var b models.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.RideID, &b.PassengerID, &b.Seats, &b.Amount, &b.PaymentRef, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.Status = models.BookingStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *PostgresStore) loadMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, ride_id, sender_id, body, sent_at FROM messages ORDER BY sent_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RideID, &m.SenderID, &m.Text, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
