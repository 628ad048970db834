package domain

import (
	"context"
	"log/slog"
	"time"

	"github.com/jerseyhouse/storefront/internal/domain/admins"
	"github.com/jerseyhouse/storefront/internal/domain/customers"
	"github.com/jerseyhouse/storefront/internal/domain/delivery"
	"github.com/jerseyhouse/storefront/internal/domain/discounts"
	"github.com/jerseyhouse/storefront/internal/domain/imports"
	"github.com/jerseyhouse/storefront/internal/domain/messaging"
	"github.com/jerseyhouse/storefront/internal/domain/orders"
	"github.com/jerseyhouse/storefront/internal/domain/otp"
	"github.com/jerseyhouse/storefront/internal/domain/products"
	"github.com/jerseyhouse/storefront/internal/payhere"
)

// Container wires domain services together.
type Container struct {
	Customers customers.Service
	Products  products.Service
	Discounts discounts.Service
	Messaging messaging.Service
	OTP       otp.Service
	Delivery  delivery.Service
	Orders    orders.Service
	Imports   imports.Service
	Admins    admins.Service
	Payments  *payhere.Signer
}

// Options configures the domain container. Nil repositories fall back to
// the package NullRepository.
type Options struct {
	CustomerRepo customers.Repository
	ProductRepo  products.Repository
	DiscountRepo discounts.Repository
	SMSLogRepo   messaging.LogRepository
	OTPRepo      otp.Repository
	DeliveryRepo delivery.Repository
	OrderRepo    orders.Repository
	ImportRepo   imports.Repository
	AdminRepo    admins.Repository

	SMSSender messaging.Sender
	PayHere   payhere.Config
	Logger    *slog.Logger

	StoreName                  string
	OTPTTL                     time.Duration
	OTPResendCooldown          time.Duration
	OTPMaxAttempts             int
	OTPVerifiedWindow          time.Duration
	ShippingFeeCents           int64
	FreeShippingThresholdCents int64
	BulkConcurrency            int
	BcryptCost                 int
}

// New constructs a domain container with provided repositories.
func New(opts Options) Container {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	customerRepo := opts.CustomerRepo
	if customerRepo == nil {
		customerRepo = customers.NullRepository{}
	}

	productRepo := opts.ProductRepo
	if productRepo == nil {
		productRepo = products.NullRepository{}
	}

	discountRepo := opts.DiscountRepo
	if discountRepo == nil {
		discountRepo = discounts.NullRepository{}
	}

	adminRepo := opts.AdminRepo
	if adminRepo == nil {
		adminRepo = admins.NullRepository{}
	}

	// messaging needs the order phone for delivery updates, and orders need
	// messaging; the lookup resolves the service once it exists.
	var orderSvc orders.Service
	messages := messaging.NewService(messaging.Options{
		Sender:    opts.SMSSender,
		Logs:      opts.SMSLogRepo,
		Logger:    logger,
		StoreName: opts.StoreName,
		PhoneForOrder: func(ctx context.Context, orderID string) (string, string, error) {
			return orderSvc.ContactFor(ctx, orderID)
		},
	})

	deliverySvc := delivery.NewService(delivery.Options{
		Repo:            opts.DeliveryRepo,
		Notifier:        messages,
		Logger:          logger,
		BulkConcurrency: opts.BulkConcurrency,
	})

	otpSvc := otp.NewService(otp.Options{
		Repo:           opts.OTPRepo,
		Messages:       messages,
		Logger:         logger,
		StoreName:      opts.StoreName,
		TTL:            opts.OTPTTL,
		ResendCooldown: opts.OTPResendCooldown,
		MaxAttempts:    opts.OTPMaxAttempts,
		VerifiedWindow: opts.OTPVerifiedWindow,
	})

	customerSvc := customers.NewService(customerRepo)
	productSvc := products.NewService(productRepo)
	discountSvc := discounts.NewService(discountRepo)
	signer := payhere.NewSigner(opts.PayHere)

	orderSvc = orders.NewService(orders.Options{
		Repo:                  opts.OrderRepo,
		Products:              productSvc,
		Customers:             customerSvc,
		Discounts:             discountSvc,
		Verifier:              otpSvc,
		Delivery:              deliverySvc,
		Messages:              messages,
		Payments:              signer,
		Logger:                logger,
		StoreName:             opts.StoreName,
		ShippingFeeCents:      opts.ShippingFeeCents,
		FreeShippingThreshold: opts.FreeShippingThresholdCents,
	})

	return Container{
		Customers: customerSvc,
		Products:  productSvc,
		Discounts: discountSvc,
		Messaging: messages,
		OTP:       otpSvc,
		Delivery:  deliverySvc,
		Orders:    orderSvc,
		Imports: imports.NewService(imports.Options{
			Repo:     opts.ImportRepo,
			Orders:   orderSvc,
			Delivery: deliverySvc,
			Logger:   logger,
		}),
		Admins:   admins.NewService(adminRepo, opts.BcryptCost),
		Payments: signer,
	}
}
