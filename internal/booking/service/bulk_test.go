package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"gatehouse/internal/audit"
	"gatehouse/internal/bulkimport"
	"gatehouse/internal/visitor/models"
	dErrors "gatehouse/pkg/domain-errors"
)

type BulkReserveSuite struct {
	BookingServiceSuite
}

func TestBulkReserveSuite(t *testing.T) {
	suite.Run(t, new(BulkReserveSuite))
}

func (s *BulkReserveSuite) bulkReq(day, hour, rows int) BulkRequest {
	req := BulkRequest{
		VisitDate: s.date(day),
		VisitTime: s.at(hour, 0),
		Purpose:   models.PurposeTraining,
		HostName:  "Grace Hopper",
		HostEmail: "host@example.com",
	}
	for i := range rows {
		req.Rows = append(req.Rows, bulkimport.Row{
			Name:  fmt.Sprintf("Visitor %d", i+1),
			Email: fmt.Sprintf("visitor%d@example.com", i+1),
			Phone: fmt.Sprintf("+1-555-02%02d", i),
		})
	}
	return req
}

func (s *BulkReserveSuite) TestReserveBatch() {
	ctx := context.Background()

	result, err := s.svc.ReserveBatch(ctx, s.bulkReq(7, 10, 3), "admin-1")
	s.Require().NoError(err)
	s.Len(result.Records, 3)
	s.Empty(result.Warnings)
	s.Equal(3, s.bucketCount(7, 10))

	credentials := make(map[string]bool)
	for i, rec := range result.Records {
		s.Equal(models.StatusPending, rec.Status)
		s.Equal(models.PurposeTraining, rec.Purpose)
		s.False(credentials[rec.Credential], "credentials must be unique")
		credentials[rec.Credential] = true

		entries, err := s.auditStore.ListByVisitor(ctx, rec.ID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.ActionRegistered, entries[0].Action)
		s.Contains(entries[0].Notes, fmt.Sprintf("row %d of 3", i+1))
	}
}

func (s *BulkReserveSuite) TestReserveBatchNormalizesEnums() {
	ctx := context.Background()

	req := s.bulkReq(7, 10, 2)
	req.Rows[0].VisitorType = "EMP"
	req.Rows[0].VisitorCategory = "govt"
	req.Rows[1].VisitorType = "contractor"

	result, err := s.svc.ReserveBatch(ctx, req, "")
	s.Require().NoError(err)
	s.Equal(models.VisitorTypeProfessional, result.Records[0].VisitorType)
	s.Equal(models.CategoryGovernment, result.Records[0].VisitorCategory)
	s.Equal(models.VisitorTypeProfessional, result.Records[1].VisitorType)
	s.Require().Len(result.Warnings, 1)
	s.Contains(result.Warnings[0], "contractor")
}

func (s *BulkReserveSuite) TestReserveBatchAllOrNothingOnRowErrors() {
	ctx := context.Background()

	req := s.bulkReq(7, 10, 3)
	req.Rows[1].Email = "not-an-email"

	_, err := s.svc.ReserveBatch(ctx, req, "")
	var rowErr *RowValidationError
	s.Require().ErrorAs(err, &rowErr)
	s.Require().Len(rowErr.Rows, 1)
	s.Equal(2, rowErr.Rows[0].Row)

	s.Equal(0, s.bucketCount(7, 10))
	records, err := s.visitStore.List(ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *BulkReserveSuite) TestReserveBatchRejectsOversizedBatch() {
	_, err := s.svc.ReserveBatch(context.Background(), s.bulkReq(7, 10, 21), "")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
	s.Contains(dErrors.MessageOf(err), "maximum of 20")
}

func (s *BulkReserveSuite) TestReserveBatchRejectsEmptyBatch() {
	_, err := s.svc.ReserveBatch(context.Background(), s.bulkReq(7, 10, 0), "")
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *BulkReserveSuite) TestReserveBatchInsufficientCapacity() {
	ctx := context.Background()

	for i := range 19 {
		req := s.createReq(7, 10)
		req.Email = strings.Replace(req.Email, "ada", fmt.Sprintf("u%d", i), 1)
		_, err := s.svc.Book(ctx, req, "")
		s.Require().NoError(err)
	}

	// 19 of 20 seats taken; a batch of 2 must not partially land.
	_, err := s.svc.ReserveBatch(ctx, s.bulkReq(7, 10, 2), "")
	s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded))
	s.Equal(19, s.bucketCount(7, 10))

	// A batch of 1 still fits.
	result, err := s.svc.ReserveBatch(ctx, s.bulkReq(7, 10, 1), "")
	s.Require().NoError(err)
	s.Len(result.Records, 1)
	s.Equal(20, s.bucketCount(7, 10))
}
