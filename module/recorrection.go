package module

import (
	"context"
	"fmt"
	"sync"

	"github.com/apex/log"
	"github.com/gammazero/workerpool"

	"github.com/priyxstudio/examination/internal/models"
)

// RequestReCorrection records that a student wants their released result
// reviewed and notifies every admin of the module. Notification failures are
// logged and do not fail the request.
func (s *Service) RequestReCorrection(ctx context.Context, userID, moduleID string) (string, error) {
	if userID == "" || moduleID == "" {
		return "", errValidation("user id and module id must be non-empty")
	}

	var admins []string
	err := s.modify(ctx, moduleID, "no such module", func(m *models.Module) error {
		if !m.ResultAvailable {
			return errValidation("results not released for this module")
		}
		if !m.IsRegistered(userID) {
			return errPermission("student is not a registered student of this module")
		}
		if m.HasRequestedReCorrection(userID) {
			return errConflict("re-correction already requested")
		}
		m.ReCorrectionRequested = append(m.ReCorrectionRequested, userID)
		admins = append([]string(nil), m.Admins...)
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(admins) > 0 {
		msg := models.Message{
			Type:    models.MessageTypeReCorrection,
			Content: fmt.Sprintf("%s is requesting re-correction for module %s", userID, moduleID),
			Author:  models.SystemAuthor,
		}
		if err := s.sender.CreateUserMessage(ctx, msg, admins...); err != nil {
			s.log.WithError(err).WithFields(log.Fields{
				"module": moduleID,
				"user":   userID,
			}).Warn("failed to notify admins of re-correction request")
		}
	}

	return "successfully placed a re-correction request", nil
}

// Delivery is the outcome of sending a module message to one student.
type Delivery struct {
	Recipient string `json:"recipient"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// DeliveryReport lists the outcome for every registered student.
type DeliveryReport struct {
	Deliveries []Delivery `json:"deliveries"`
}

// Failed returns the deliveries that did not go through.
func (r *DeliveryReport) Failed() []Delivery {
	var out []Delivery
	for _, d := range r.Deliveries {
		if !d.Delivered {
			out = append(out, d)
		}
	}
	return out
}

// CreateModuleMessage sends a message from an admin to every registered
// student of the module. Every student is attempted even when some
// deliveries fail; the report says which ones did. Messages that were
// delivered are never withdrawn.
func (s *Service) CreateModuleMessage(ctx context.Context, moduleID, authorID, message string) (*DeliveryReport, error) {
	if moduleID == "" || authorID == "" || message == "" {
		return nil, errValidation("module id, author id and message must be non-empty")
	}
	m, err := s.load(ctx, moduleID, "no such module")
	if err != nil {
		return nil, err
	}
	if !m.IsAdmin(authorID) {
		return nil, errPermission("you are not an admin of this module")
	}

	msg := models.Message{
		Type:    models.MessageTypeModule,
		Content: message,
		Author:  authorID,
	}
	report := &DeliveryReport{Deliveries: make([]Delivery, len(m.RegisteredStudents))}

	var mu sync.Mutex
	wp := workerpool.New(s.workers)
	for i, student := range m.RegisteredStudents {
		wp.Submit(func() {
			d := Delivery{Recipient: student, Delivered: true}
			if err := s.sender.CreateUserMessage(ctx, msg, student); err != nil {
				d.Delivered = false
				d.Error = err.Error()
			}
			mu.Lock()
			report.Deliveries[i] = d
			mu.Unlock()
		})
	}
	wp.StopWait()

	if failed := report.Failed(); len(failed) > 0 {
		s.log.WithFields(log.Fields{
			"module": moduleID,
			"failed": len(failed),
			"total":  len(report.Deliveries),
		}).Warn("module message was not delivered to every student")
	}
	return report, nil
}
