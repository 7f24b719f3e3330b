package api

import (
	"errors"
	"net/http"

	"github.com/contactkeval/option-impvol/internal/impliedvol"
	"github.com/contactkeval/option-impvol/internal/pricing"
	"github.com/contactkeval/option-impvol/internal/quote"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Responses carry decimals rounded to this many places.
const responsePlaces = 8

type contractRequest struct {
	Spot     float64  `json:"spot" binding:"required,gt=0"`
	Strike   float64  `json:"strike" binding:"required,gt=0"`
	Maturity float64  `json:"maturity" binding:"required,gt=0"`
	Rate     *float64 `json:"rate"`
	Dividend *float64 `json:"dividend" binding:"omitempty,gte=0"`
	IsCall   bool     `json:"is_call"`
}

func (server *Server) contract(req contractRequest) (pricing.OptionContract, float64) {
	c := pricing.OptionContract{
		Spot:     req.Spot,
		Strike:   req.Strike,
		Maturity: req.Maturity,
		Dividend: server.defaults.Dividend,
		IsCall:   req.IsCall,
	}
	if req.Dividend != nil {
		c.Dividend = *req.Dividend
	}
	rate := server.defaults.Rate
	if req.Rate != nil {
		rate = *req.Rate
	}
	return c, rate
}

type priceRequest struct {
	contractRequest
	Volatility float64 `json:"volatility" binding:"required,gt=0"`
}

type priceResponse struct {
	Price decimal.Decimal `json:"price"`
	Vega  decimal.Decimal `json:"vega"`
}

func (server *Server) price(c *gin.Context) {
	var req priceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	contract, rate := server.contract(req.contractRequest)
	m := pricing.MarketParameters{Rate: rate, Volatility: req.Volatility}
	p, err := pricing.DefaultPricer.Price(contract, m)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}
	vega, err := pricing.DefaultPricer.Vega(contract, m)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, priceResponse{Price: round(p), Vega: round(vega)})
}

type impliedVolRequest struct {
	contractRequest
	Price        *float64 `json:"price" binding:"required"`
	InitialGuess float64  `json:"initial_guess" binding:"omitempty,gt=0"`
	Tolerance    float64  `json:"tolerance" binding:"omitempty,gt=0"`
	Method       string   `json:"method" binding:"omitempty,oneof=newton bisection"`
}

type impliedVolResponse struct {
	ImpliedVol decimal.Decimal `json:"implied_vol"`
	Vega       decimal.Decimal `json:"vega"`
	Method     string          `json:"method"`
}

func (server *Server) impliedVol(c *gin.Context) {
	var req impliedVolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	contract, rate := server.contract(req.contractRequest)
	guess, xtol := server.defaults.InitialGuess, server.defaults.Tolerance
	if req.InitialGuess > 0 {
		guess = req.InitialGuess
	}
	if req.Tolerance > 0 {
		xtol = req.Tolerance
	}
	solver := server.solver
	if req.Method != "" {
		solver.Method = impliedvol.Method(req.Method)
	}
	method, _ := impliedvol.ParseMethod(string(solver.Method))

	vol, err := solver.Solve(*req.Price, contract, rate, guess, xtol)
	if err != nil {
		solveError(c, err)
		return
	}
	vega, err := pricing.DefaultPricer.Vega(contract, pricing.MarketParameters{Rate: rate, Volatility: vol})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, impliedVolResponse{ImpliedVol: round(vol), Vega: round(vega), Method: string(method)})
}

func (server *Server) quote(c *gin.Context) {
	var req quote.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	res, err := server.quotes.ImpliedVol(req)
	if err != nil {
		solveError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// solveError maps solver and quote failures to a status code.
func solveError(c *gin.Context, err error) {
	var oob *impliedvol.OutOfBoundsError
	switch {
	case errors.As(err, &oob):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
			"bound": oob.Bound,
			"lower": round(oob.Bounds.Lower),
			"upper": round(oob.Bounds.Upper),
		})
	case errors.Is(err, impliedvol.ErrNonConvergent):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, errorResponse(err))
	case errors.Is(err, pricing.ErrDomain),
		errors.Is(err, impliedvol.ErrInvalidInput),
		errors.Is(err, quote.ErrExpired):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
	default:
		// market data lookups are the only other failure
		c.AbortWithStatusJSON(http.StatusBadGateway, errorResponse(err))
	}
}

func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(responsePlaces)
}
