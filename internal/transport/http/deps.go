package http

import (
	"github.com/campusxchange/swapkr/internal/application/access"
	"github.com/campusxchange/swapkr/internal/application/account"
	"github.com/campusxchange/swapkr/internal/application/listing"
	"github.com/campusxchange/swapkr/internal/application/moderation"
	"github.com/campusxchange/swapkr/internal/application/notification"
	requestapp "github.com/campusxchange/swapkr/internal/application/request"
	"github.com/campusxchange/swapkr/internal/transport/http/handler"
	"go.uber.org/zap"
)

// Deps holds the application services the router exposes.
type Deps struct {
	Verifier      *access.Verifier
	Policy        *access.Policy
	Accounts      account.Service
	Listings      listing.Service
	Requests      requestapp.Service
	Notifications notification.Service
	Moderation    moderation.Service
	DB            handler.Pinger // optional, used by the health check
	Logger        *zap.Logger
}
