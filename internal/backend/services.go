package backend

import (
	"time"

	"society/internal/auth"
	"society/internal/config"
	"society/internal/services"
)

type ServiceOptions struct {
	SocietyName    string
	CurrencyPrefix string
	JWTSecret      string
	JWTTTL         time.Duration
	// Now is the clock of the rolling dues window and report dates.
	Now func() time.Time
}

func ServiceOptionsFromConfig(cfg *config.Config) ServiceOptions {
	return ServiceOptions{
		SocietyName:    cfg.SocietyName,
		CurrencyPrefix: cfg.CurrencyPrefix,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTTTL,
		Now:            time.Now,
	}
}

// Services is the engine wired onto one backend.
type Services struct {
	Ledger     *services.LedgerService
	Users      *services.UserService
	Aggregator *services.PeriodAggregator
	Dues       *services.DuesCalculator
	Analytics  *services.AnalyticsComposer
	Reports    *services.ReportBuilder
	Tokens     *auth.TokenIssuer
}

func NewServices(res *BackendResult, opts ServiceOptions) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	store := res.Store
	agg := services.NewPeriodAggregator(store)
	dues := services.NewDuesCalculator(store, store)
	tokens := auth.NewTokenIssuer(opts.JWTSecret, opts.JWTTTL).WithClock(opts.Now)

	return &Services{
		Ledger:     services.NewLedgerService(store, res.Publisher),
		Users:      services.NewUserService(store, tokens),
		Aggregator: agg,
		Dues:       dues,
		Analytics:  services.NewAnalyticsComposer(agg, dues, store, opts.Now),
		Reports: services.NewReportBuilder(store, agg, services.ReportOptions{
			SocietyName:    opts.SocietyName,
			CurrencyPrefix: opts.CurrencyPrefix,
		}, opts.Now),
		Tokens: tokens,
	}
}
