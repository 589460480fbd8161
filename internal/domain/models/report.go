package models

import "time"

// DailyReport is the end-of-session collection summary persisted and shared by the scheduler.
type DailyReport struct {
	Date         time.Time `bson:"date" json:"date"`
	Session      Session   `bson:"session" json:"session"`
	Entries      int       `bson:"entries" json:"entries"`
	TotalWeight  float64   `bson:"total_weight" json:"total_weight"`
	AverageFat   float64   `bson:"average_fat" json:"average_fat"`
	TotalLessAdd float64   `bson:"total_less_add" json:"total_less_add"`
	TotalNetMilk float64   `bson:"total_net_milk" json:"total_net_milk"`
	TotalAmount  float64   `bson:"total_amount" json:"total_amount"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
