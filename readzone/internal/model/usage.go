package model

import "time"

type Usage struct {
	Date             string    `json:"date"`
	Used             int       `json:"used"`
	Limit            int       `json:"limit"`
	Remaining        int       `json:"remaining"`
	WarningThreshold int       `json:"warningThreshold"`
	IsWarning        bool      `json:"isWarning"`
	ResetAt          time.Time `json:"resetAt"`
}
