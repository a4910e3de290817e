package domain

import (
	"sort"
	"time"
)

// Leg es el lado de un trade dentro del par entrada/salida.
type Leg string

const (
	LegEnter Leg = "ENTER"
	LegExit  Leg = "EXIT"
)

// Action es la dirección de la orden.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// OrderType distingue órdenes limitadas de órdenes a mercado.
type OrderType string

const (
	OrderLimit  OrderType = "LMT"
	OrderMarket OrderType = "MKT"
)

// OrderStatus es el estado de una orden en un instante del blotter.
type OrderStatus string

const (
	StatusSubmitted OrderStatus = "SUBMITTED"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusLive      OrderStatus = "LIVE"
)

// Order es un evento del blotter: una orden en un estado y una fecha concretos.
// Un mismo trade genera varios eventos (SUBMITTED, luego FILLED/CANCELLED/LIVE).
type Order struct {
	TradeID int
	Date    time.Time
	Asset   string
	Leg     Leg
	Action  Action
	Type    OrderType
	Price   float64
	Status  OrderStatus
}

// Is reporta si la orden coincide en leg y status.
func (o Order) Is(leg Leg, status OrderStatus) bool {
	return o.Leg == leg && o.Status == status
}

// SortOrders ordena el blotter por (trade_id, leg, date). El orden es estable:
// eventos del mismo trade, leg y fecha conservan su orden de emisión
// (SUBMITTED antes que FILLED, CANCELLED antes que el MKT que lo sustituye).
func SortOrders(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if a.TradeID != b.TradeID {
			return a.TradeID < b.TradeID
		}
		if a.Leg != b.Leg {
			return a.Leg < b.Leg
		}
		return a.Date.Before(b.Date)
	})
}
