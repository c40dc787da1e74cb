package handler

import (
	"time"

	"ponto/internal/attendance/consent"
	"ponto/internal/attendance/models"
)

type clockEventResponse struct {
	OK           bool    `json:"ok"`
	EventID      string  `json:"eventId"`
	UnitName     string  `json:"unitName"`
	EmployeeName *string `json:"employeeName"`
	ProtocolCode string  `json:"protocolCode"`
	Timestamp    string  `json:"timestamp"`
	ReceiptToken string  `json:"receiptToken,omitempty"`
}

func toClockEventResponse(r *models.Receipt) clockEventResponse {
	return clockEventResponse{
		OK:           true,
		EventID:      r.EventID.String(),
		UnitName:     r.UnitName,
		EmployeeName: r.EmployeeName,
		ProtocolCode: r.ProtocolCode,
		Timestamp:    r.Timestamp.Format(time.RFC3339),
		ReceiptToken: r.ReceiptToken,
	}
}

type consentResponse struct {
	OK             bool   `json:"ok"`
	EmployeeID     string `json:"employeeId"`
	AcknowledgedAt string `json:"acknowledgedAt"`
	Created        bool   `json:"created"`
}

func toConsentResponse(res *consent.Result) consentResponse {
	return consentResponse{
		OK:             true,
		EmployeeID:     res.Record.EmployeeID.String(),
		AcknowledgedAt: res.Record.AcknowledgedAt.Format(time.RFC3339),
		Created:        res.Created,
	}
}
