package archive

import (
	"fmt"
	"net/url"

	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"main/internal/schema"
)

const (
	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresSSLMode = "disable"
)

// Option defines connection options for the Postgres archive.
type Option struct {
	Host       string
	Port       int
	User       string
	Password   string
	Database   string
	SSLMode    string
	Params     map[string]string
	ConnString string
	Config     *gorm.Config
}

// Record is the persisted form of a terminal RFQ.
type Record struct {
	RfqID           uint64 `gorm:"primaryKey;autoIncrement:false"`
	Correlation     string
	Cusip           string
	Side            uint16
	State           uint16
	Quantity        int64
	CreatorUserID   uint32
	ExpireAt        int64
	ClosedAt        int64
	QuoteCount      int
	AcceptedQuoteID uint32
	DealerUserID    uint32
	DealPrice       int64
	DealQuantity    int64
}

// TableName keeps the archive table stable across gorm naming changes.
func (Record) TableName() string {
	return "rfq_archive"
}

// Store persists terminal RFQs to Postgres. It lives entirely outside the
// apply path; archiving latency never reaches the core.
type Store struct {
	opt Option
	db  *gorm.DB
}

// Open connects to Postgres and migrates the archive table.
func Open(option Option) (*Store, error) {
	connString, err := option.dsn()
	if err != nil {
		return nil, err
	}

	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(connString), config)
	if err != nil {
		return nil, errors.Wrap(err, "open archive database")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Wrap(err, "migrate archive table")
	}

	return &Store{opt: option, db: db}, nil
}

// Save upserts the terminal RFQ.
func (s *Store) Save(info schema.RfqInfo) error {
	if s == nil || s.db == nil {
		return nil
	}
	record := recordFromInfo(info)
	err := s.db.Save(&record).Error
	if err != nil {
		return errors.Wrapf(err, "archive rfq %d", info.ID)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordFromInfo(info schema.RfqInfo) Record {
	record := Record{
		RfqID:         uint64(info.ID),
		Correlation:   info.Correlation,
		Cusip:         info.Cusip,
		Side:          uint16(info.Side),
		State:         uint16(info.State),
		Quantity:      int64(info.Quantity),
		CreatorUserID: uint32(info.CreatorUserID),
		ExpireAt:      int64(info.ExpireAt),
		ClosedAt:      int64(info.ClosedAt),
		QuoteCount:    len(info.Quotes),
	}
	if info.State == schema.RfqStateAccepted {
		record.AcceptedQuoteID = uint32(info.AcceptedQuoteID)
		for _, quote := range info.Quotes {
			if quote.QuoteID != info.AcceptedQuoteID {
				continue
			}
			record.DealerUserID = uint32(quote.DealerUserID)
			record.DealPrice = int64(quote.Price)
			record.DealQuantity = int64(quote.Quantity)
			break
		}
	}
	return record
}

func (opt Option) dsn() (string, error) {
	if opt.ConnString != "" {
		return opt.ConnString, nil
	}

	host := opt.Host
	if host == "" {
		host = defaultPostgresHost
	}

	port := opt.Port
	if port == 0 {
		port = defaultPostgresPort
	}

	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultPostgresSSLMode
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
	}

	if opt.User != "" {
		if opt.Password != "" {
			u.User = url.UserPassword(opt.User, opt.Password)
		} else {
			u.User = url.User(opt.User)
		}
	}

	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	for key, value := range opt.Params {
		if key == "" {
			continue
		}
		query.Set(key, value)
	}
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}

	return u.String(), nil
}
