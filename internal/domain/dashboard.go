package domain

import "time"

type PaymentStats struct {
	PendingPayments  int   `json:"pendingPayments"`
	ApprovedPayments int   `json:"approvedPayments"`
	TotalRevenue     int64 `json:"totalRevenue"`
}

type DashboardStats struct {
	TotalParticipants int           `json:"totalParticipants"`
	ThisMonth         int           `json:"thisMonth"`
	LastMonth         int           `json:"lastMonth"`
	TrendPercentage   float64       `json:"trendPercentage"`
	ActiveTrainings   int           `json:"activeTrainings"`
	Completed         int           `json:"completed"`
	PendingReview     int           `json:"pendingReview"`
	PaymentStats      *PaymentStats `json:"paymentStats,omitempty"`
}

type Activity struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Status    string    `json:"status"`
	RefID     int32     `json:"refId"`
	Timestamp time.Time `json:"timestamp"`
}

type ProgressBucket struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type DashboardProgress struct {
	Buckets         []ProgressBucket `json:"buckets"`
	Total           int              `json:"total"`
	AverageProgress float64          `json:"averageProgress"`
}

// Trend returns the month-over-month change in percent.
func Trend(thisMonth, lastMonth int) float64 {
	if lastMonth == 0 {
		if thisMonth > 0 {
			return 100
		}
		return 0
	}
	return float64(thisMonth-lastMonth) * 100 / float64(lastMonth)
}
