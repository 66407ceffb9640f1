package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory/models"
	"inventory/pkg/ledger"
	"inventory/pkg/policy"
	"inventory/pkg/query"
	"inventory/pkg/store"
)

func u(v uint) *uint { return &v }
func n(v int) *int   { return &v }
func b(v bool) *bool { return &v }

// newEngine returns an engine over a memory store holding statuses 1-3 and
// users 1-9.
func newEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	for id := uint(1); id <= 3; id++ {
		require.NoError(t, s.Statuses.Create(ctx, &models.Status{ID: id, Label: fmt.Sprintf("status %d", id)}))
	}
	for id := uint(1); id <= 9; id++ {
		require.NoError(t, s.Users.Create(ctx, &models.User{ID: id, Email: fmt.Sprintf("user%d@mail.com", id), UserTypeID: uint(policy.Viewer)}))
	}
	log, _ := test.NewNullLogger()
	return New(s, ledger.New(s.AssignmentLogs), log), s
}

func laptop(instances ...HardwareInstanceInput) HardwareInput {
	return HardwareInput{
		Name:        "Laptop",
		Brand:       "Lenovo",
		Type:        "Notebook",
		ModelNumber: "T14",
		Description: "Standard issue",
		One2m:       HardwareChildren{Instances: Collection[HardwareInstanceInput]{Data: instances}},
	}
}

func office(subs ...SubscriptionInput) SoftwareInput {
	return SoftwareInput{
		Name:           "Office",
		Brand:          "Microsoft",
		VersionNumber:  "365",
		Description:    "Suite",
		ExpirationDate: "2030-01-01",
		One2m: SoftwareChildren{
			Subscriptions: Collection[SubscriptionInput]{Data: subs},
		},
	}
}

// seedHardware creates a laptop with one instance "SN1" as root admin.
func seedHardware(t *testing.T, e *Engine, assignee *uint) (hwID, instID uint) {
	t.Helper()
	ctx := context.Background()
	hwID, err := e.CreateHardware(ctx, policy.RootAdmin, laptop(HardwareInstanceInput{
		SerialNumber:    "SN1",
		ProcurementDate: "2024-03-01",
		Assignee:        assignee,
	}))
	require.NoError(t, err)
	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	require.Len(t, doc.One2m.Instances.Data, 1)
	return hwID, doc.One2m.Instances.Data[0].ID
}

func logs(t *testing.T, s *store.Store) []models.AssignmentLog {
	t.Helper()
	rows, _, err := s.AssignmentLogs.Search(context.Background(), query.All())
	require.NoError(t, err)
	return rows
}

func TestClerkReassignsButCannotEditHeader(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)

	in := laptop(HardwareInstanceInput{ID: u(instID), SerialNumber: "IGNORED", ProcurementDate: "2020-01-01", Status: u(2), Assignee: u(7)})
	in.Name = "Renamed"
	_, err := e.ReconcileHardware(ctx, policy.Clerk, hwID, in)
	require.NoError(t, err)

	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", doc.Name)
	inst := doc.One2m.Instances.Data[0]
	assert.Equal(t, "SN1", inst.SerialNumber)
	assert.Nil(t, inst.StatusID)
	require.NotNil(t, inst.AssigneeID)
	assert.Equal(t, uint(7), *inst.AssigneeID)

	recs := logs(t, s)
	require.Len(t, recs, 1)
	assert.Equal(t, models.AssignmentAssign, recs[0].AssignmentType)
	assert.Equal(t, uint(7), recs[0].UserID)
	require.NotNil(t, recs[0].HardwareInstanceID)
	assert.Equal(t, instID, *recs[0].HardwareInstanceID)
}

func TestAdminReassignAppendsAssignThenUnassign(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, u(7))
	require.Len(t, logs(t, s), 1)

	res, err := e.ReconcileHardware(ctx, policy.Admin, hwID, laptop(HardwareInstanceInput{
		ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01", Assignee: u(9),
	}))
	require.NoError(t, err)
	require.Len(t, res.Assignments, 2)

	recs := logs(t, s)
	require.Len(t, recs, 3)
	assert.Equal(t, models.AssignmentAssign, recs[1].AssignmentType)
	assert.Equal(t, uint(9), recs[1].UserID)
	assert.Equal(t, models.AssignmentUnassign, recs[2].AssignmentType)
	assert.Equal(t, uint(7), recs[2].UserID)

	row, err := s.HardwareInstances.Get(ctx, instID)
	require.NoError(t, err)
	assert.Equal(t, uint(9), *row.AssigneeID)
}

func TestUnassignClearsAssignee(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, u(7))

	_, err := e.ReconcileHardware(ctx, policy.Clerk, hwID, laptop(HardwareInstanceInput{
		ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01",
	}))
	require.NoError(t, err)

	row, err := s.HardwareInstances.Get(ctx, instID)
	require.NoError(t, err)
	assert.Nil(t, row.AssigneeID)
	recs := logs(t, s)
	require.Len(t, recs, 2)
	assert.Equal(t, models.AssignmentUnassign, recs[1].AssignmentType)
}

func TestDeleteListWinsOverData(t *testing.T) {
	for _, role := range []policy.Role{policy.Admin, policy.SuperAdmin, policy.RootAdmin} {
		t.Run(role.String(), func(t *testing.T) {
			ctx := context.Background()
			e, s := newEngine(t)
			hwID, instID := seedHardware(t, e, nil)

			in := laptop(HardwareInstanceInput{ID: u(instID), SerialNumber: "CHANGED", ProcurementDate: "2024-03-01", Assignee: u(3)})
			in.One2m.Instances.Delete = []uint{instID}
			res, err := e.ReconcileHardware(ctx, role, hwID, in)
			require.NoError(t, err)
			assert.Equal(t, []uint{instID}, res.Collections["instances"].Deleted)
			assert.Equal(t, []uint{instID}, res.Collections["instances"].Skipped)

			_, err = s.HardwareInstances.Get(ctx, instID)
			require.ErrorIs(t, err, store.ErrNotFound)
			assert.Empty(t, logs(t, s))
		})
	}
}

func TestLowerRolesCannotAddOrDeleteChildren(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)

	in := laptop(
		HardwareInstanceInput{ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01"},
		HardwareInstanceInput{SerialNumber: "SN2", ProcurementDate: "2024-03-02"},
	)
	in.One2m.Instances.Delete = []uint{instID}
	_, err := e.ReconcileHardware(ctx, policy.Clerk, hwID, in)
	require.NoError(t, err)

	rows, err := s.HardwareInstances.ListByParent(ctx, hwID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, instID, rows[0].ID)

	_, err = e.ReconcileHardware(ctx, policy.Viewer, hwID, in)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, policy.ErrUnauthorized)
	rows, err = s.HardwareInstances.ListByParent(ctx, hwID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAdminAddsChildWithInitialAssign(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)

	res, err := e.ReconcileHardware(ctx, policy.Admin, hwID, laptop(
		HardwareInstanceInput{ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01"},
		HardwareInstanceInput{SerialNumber: "SN2", ProcurementDate: "2024-03-02", Status: u(1), Assignee: u(4)},
	))
	require.NoError(t, err)
	created := res.Collections["instances"].Created
	require.Len(t, created, 1)

	recs := logs(t, s)
	require.Len(t, recs, 1)
	assert.Equal(t, created[0], *recs[0].HardwareInstanceID)
	assert.Equal(t, uint(4), recs[0].UserID)
}

func TestViewerRejectedBeforeValidation(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.ReconcileHardware(context.Background(), policy.Viewer, 1, HardwareInput{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidationIsAggregatedAndAllOrNothing(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)

	in := laptop(
		HardwareInstanceInput{ID: u(instID), SerialNumber: "NEW", ProcurementDate: "2024-03-01", Assignee: u(5)},
		HardwareInstanceInput{SerialNumber: "", ProcurementDate: "03/01/2024"},
	)
	in.Name = ""
	_, err := e.ReconcileHardware(ctx, policy.Admin, hwID, in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"This field is required."}, verr.Fields["name"])
	entries := verr.Collections["instances"]
	require.Len(t, entries, 2)
	assert.Empty(t, entries[0])
	assert.Equal(t, []string{"This field is required."}, entries[1]["serial_number"])
	assert.Contains(t, entries[1]["procurement_date"][0], "YYYY-MM-DD")
	assert.Contains(t, verr.Errors(), "name")
	assert.Contains(t, verr.Errors(), "instances")

	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", doc.Name)
	assert.Equal(t, "SN1", doc.One2m.Instances.Data[0].SerialNumber)
	assert.Empty(t, logs(t, s))
}

func TestForDeletionAppliesForClerk(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	hwID, _ := seedHardware(t, e, nil)

	in := laptop()
	in.Brand = "Ignored"
	in.ForDeletion = b(true)
	res, err := e.ReconcileHardware(ctx, policy.Clerk, hwID, in)
	require.NoError(t, err)
	require.Len(t, res.Parent, 1)
	assert.Equal(t, "/for_deletion", res.Parent[0].Path)

	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	assert.True(t, doc.ForDeletion)
	assert.Equal(t, "Lenovo", doc.Brand)
}

func TestStatusOnlyChangesWhenSupplied(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)

	_, err := e.ReconcileHardware(ctx, policy.Admin, hwID, laptop(HardwareInstanceInput{ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01", Status: u(2)}))
	require.NoError(t, err)
	_, err = e.ReconcileHardware(ctx, policy.Admin, hwID, laptop(HardwareInstanceInput{ID: u(instID), SerialNumber: "SN1b", ProcurementDate: "2024-03-01"}))
	require.NoError(t, err)

	row, err := s.HardwareInstances.Get(ctx, instID)
	require.NoError(t, err)
	assert.Equal(t, "SN1b", row.SerialNumber)
	require.NotNil(t, row.StatusID)
	assert.Equal(t, uint(2), *row.StatusID)
}

func TestPartialStateWhenChildIsMissing(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	hwID, _ := seedHardware(t, e, nil)

	in := laptop(HardwareInstanceInput{ID: u(999), SerialNumber: "X", ProcurementDate: "2024-03-01"})
	in.Name = "Saved before failure"
	_, err := e.ReconcileHardware(ctx, policy.Admin, hwID, in)
	require.ErrorIs(t, err, store.ErrNotFound)

	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	assert.Equal(t, "Saved before failure", doc.Name)
}

func TestChildOfAnotherParentIsNotFound(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	_, instA := seedHardware(t, e, nil)
	hwB, _ := seedHardware(t, e, nil)

	in := laptop()
	in.One2m.Instances.Delete = []uint{instA}
	_, err := e.ReconcileHardware(ctx, policy.Admin, hwB, in)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.HardwareInstances.Get(ctx, instA)
	require.NoError(t, err)
}

func TestMissingParentIsNotFound(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.ReconcileHardware(context.Background(), policy.Admin, 404, laptop())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubscriptionDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t)
	swID, err := e.CreateSoftware(ctx, policy.Admin, office(SubscriptionInput{Start: "2025-01-01", End: "2025-12-31", NumberOfLicenses: n(3)}))
	require.NoError(t, err)
	doc, err := e.Software(ctx, swID)
	require.NoError(t, err)
	require.Len(t, doc.One2m.Subscriptions.Data, 1)
	subID := doc.One2m.Subscriptions.Data[0].ID
	assert.Equal(t, 3, doc.One2m.Subscriptions.Data[0].NumberOfLicenses)

	in := office()
	in.One2m.Subscriptions.Delete = []uint{subID}
	_, err = e.ReconcileSoftware(ctx, policy.Admin, swID, in)
	require.NoError(t, err)

	doc, err = e.Software(ctx, swID)
	require.NoError(t, err)
	assert.Empty(t, doc.One2m.Subscriptions.Data)
}

func TestNegativeLicenseCountIsInvalid(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.CreateSoftware(context.Background(), policy.Admin, office(
		SubscriptionInput{Start: "2025-01-01", End: "2025-12-31", NumberOfLicenses: n(-1)},
		SubscriptionInput{Start: "2025-01-01", End: "2025-12-31"},
	))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	subs := verr.Collections["subscriptions"]
	require.Len(t, subs, 2)
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 0."}, subs[0]["number_of_licenses"])
	assert.Equal(t, []string{"This field is required."}, subs[1]["number_of_licenses"])
}

func TestClerkSoftwareReassignKeepsSubscriptions(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	in := office(SubscriptionInput{Start: "2025-01-01", End: "2025-12-31", NumberOfLicenses: n(3)})
	in.One2m.Instances.Data = []SoftwareInstanceInput{{SerialKey: "KEY-1", Assignee: u(2)}}
	swID, err := e.CreateSoftware(ctx, policy.SuperAdmin, in)
	require.NoError(t, err)
	doc, err := e.Software(ctx, swID)
	require.NoError(t, err)
	instID := doc.One2m.Instances.Data[0].ID
	subID := doc.One2m.Subscriptions.Data[0].ID

	up := office(SubscriptionInput{ID: u(subID), Start: "2026-01-01", End: "2026-12-31", NumberOfLicenses: n(50)})
	up.One2m.Instances.Data = []SoftwareInstanceInput{{ID: u(instID), SerialKey: "KEY-CHANGED", Assignee: u(8)}}
	up.One2m.Subscriptions.Delete = []uint{subID}
	res, err := e.ReconcileSoftware(ctx, policy.Clerk, swID, up)
	require.NoError(t, err)
	assert.Empty(t, res.Parent)

	doc, err = e.Software(ctx, swID)
	require.NoError(t, err)
	assert.Equal(t, "KEY-1", doc.One2m.Instances.Data[0].SerialKey)
	assert.Equal(t, uint(8), *doc.One2m.Instances.Data[0].AssigneeID)
	require.Len(t, doc.One2m.Subscriptions.Data, 1)
	assert.Equal(t, 3, doc.One2m.Subscriptions.Data[0].NumberOfLicenses)

	recs := logs(t, s)
	require.Len(t, recs, 3)
	for _, r := range recs {
		require.NotNil(t, r.SoftwareInstanceID)
		assert.Nil(t, r.HardwareInstanceID)
	}
}

func TestCreateRequiresAdminTier(t *testing.T) {
	e, _ := newEngine(t)
	_, err := e.CreateHardware(context.Background(), policy.Clerk, laptop())
	require.ErrorIs(t, err, ErrUnauthorized)
	_, err = e.CreateSoftware(context.Background(), policy.Viewer, office())
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeleteCascadesAndKeepsLogs(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, u(7))

	require.ErrorIs(t, e.DeleteHardware(ctx, policy.Clerk, hwID), ErrUnauthorized)
	require.NoError(t, e.DeleteHardware(ctx, policy.Admin, hwID))

	_, err := s.Hardware.Get(ctx, hwID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.HardwareInstances.Get(ctx, instID)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Len(t, logs(t, s), 1)

	require.ErrorIs(t, e.DeleteHardware(ctx, policy.Admin, hwID), store.ErrNotFound)
}

func TestDeleteSoftwareCascades(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	in := office(SubscriptionInput{Start: "2025-01-01", End: "2025-12-31", NumberOfLicenses: n(1)})
	in.One2m.Instances.Data = []SoftwareInstanceInput{{SerialKey: "K"}}
	swID, err := e.CreateSoftware(ctx, policy.Admin, in)
	require.NoError(t, err)

	require.NoError(t, e.DeleteSoftware(ctx, policy.SuperAdmin, swID))
	subs, err := s.Subscriptions.ListByParent(ctx, swID)
	require.NoError(t, err)
	assert.Empty(t, subs)
	inst, err := s.SoftwareInstances.ListByParent(ctx, swID)
	require.NoError(t, err)
	assert.Empty(t, inst)
}

func TestDetailNormalizesZeroStatus(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)
	row, err := s.HardwareInstances.Get(ctx, instID)
	require.NoError(t, err)
	row.StatusID = u(0)
	require.NoError(t, s.HardwareInstances.Update(ctx, row))

	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	assert.Nil(t, doc.One2m.Instances.Data[0].StatusID)
}

func TestReconcileLogsSummary(t *testing.T) {
	s := store.NewMemory()
	log, hook := test.NewNullLogger()
	e := New(s, nil, log)
	hwID, _ := seedHardware(t, e, nil)

	_, err := e.ReconcileHardware(context.Background(), policy.Admin, hwID, laptop())
	require.NoError(t, err)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "hardware reconciled", entry.Message)
	assert.Equal(t, hwID, entry.Data["hardware"])
}

func TestUnknownLinksAreNotFound(t *testing.T) {
	cases := map[string]HardwareInstanceInput{
		"status":   {SerialNumber: "SN1", ProcurementDate: "2024-03-01", Status: u(42)},
		"assignee": {SerialNumber: "SN1", ProcurementDate: "2024-03-01", Assignee: u(999)},
	}
	for name, entry := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e, s := newEngine(t)
			hwID, instID := seedHardware(t, e, u(7))

			entry.ID = u(instID)
			_, err := e.ReconcileHardware(ctx, policy.Admin, hwID, laptop(entry))
			require.ErrorIs(t, err, store.ErrNotFound)
			assert.Contains(t, err.Error(), name)

			row, err := s.HardwareInstances.Get(ctx, instID)
			require.NoError(t, err)
			assert.Nil(t, row.StatusID)
			assert.Equal(t, uint(7), *row.AssigneeID)
			assert.Len(t, logs(t, s), 1)

			entry.ID = nil
			_, err = e.ReconcileHardware(ctx, policy.Admin, hwID, laptop(entry))
			require.ErrorIs(t, err, store.ErrNotFound)
			rows, err := s.HardwareInstances.ListByParent(ctx, hwID)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
			assert.Len(t, logs(t, s), 1)
		})
	}
}

func TestUnknownSoftwareAssigneeIsNotFound(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	in := office()
	in.One2m.Instances.Data = []SoftwareInstanceInput{{SerialKey: "KEY-1", Assignee: u(2)}}
	swID, err := e.CreateSoftware(ctx, policy.Admin, in)
	require.NoError(t, err)
	doc, err := e.Software(ctx, swID)
	require.NoError(t, err)
	instID := doc.One2m.Instances.Data[0].ID

	up := office()
	up.One2m.Instances.Data = []SoftwareInstanceInput{{ID: u(instID), SerialKey: "KEY-1", Assignee: u(404)}}
	_, err = e.ReconcileSoftware(ctx, policy.Clerk, swID, up)
	require.ErrorIs(t, err, store.ErrNotFound)

	row, err := s.SoftwareInstances.Get(ctx, instID)
	require.NoError(t, err)
	assert.Equal(t, uint(2), *row.AssigneeID)
	assert.Len(t, logs(t, s), 1)
}

func TestUnchangedStaleAssigneeIsKept(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, u(7))
	require.NoError(t, s.Users.Delete(ctx, 7))

	_, err := e.ReconcileHardware(ctx, policy.Clerk, hwID, laptop(HardwareInstanceInput{
		ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01", Assignee: u(7),
	}))
	require.NoError(t, err)
	assert.Len(t, logs(t, s), 1)
}

func TestRepeatedDeleteIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	e, s := newEngine(t)
	hwID, instID := seedHardware(t, e, nil)

	in := laptop(HardwareInstanceInput{SerialNumber: "SN2", ProcurementDate: "2024-03-02"})
	in.Name = "Renamed"
	in.One2m.Instances.Delete = []uint{instID, instID}
	res, err := e.ReconcileHardware(ctx, policy.Admin, hwID, in)
	require.NoError(t, err)
	assert.Equal(t, []uint{instID}, res.Collections["instances"].Deleted)
	require.Len(t, res.Collections["instances"].Created, 1)

	doc, err := e.Hardware(ctx, hwID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", doc.Name)
	require.Len(t, doc.One2m.Instances.Data, 1)
	assert.Equal(t, "SN2", doc.One2m.Instances.Data[0].SerialNumber)
	_, err = s.HardwareInstances.Get(ctx, instID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestParentFieldsFollowRole(t *testing.T) {
	for _, tc := range []struct {
		role    policy.Role
		applied bool
	}{
		{policy.Admin, true},
		{policy.SuperAdmin, true},
		{policy.RootAdmin, true},
		{policy.Clerk, false},
	} {
		t.Run(tc.role.String(), func(t *testing.T) {
			ctx := context.Background()
			e, _ := newEngine(t)

			hwID, instID := seedHardware(t, e, nil)
			hw := laptop(HardwareInstanceInput{ID: u(instID), SerialNumber: "SN1", ProcurementDate: "2024-03-01"})
			hw.Name, hw.Brand, hw.Type = "Desktop", "Dell", "Tower"
			hw.ModelNumber, hw.Description = "OptiPlex", "Reception"
			res, err := e.ReconcileHardware(ctx, tc.role, hwID, hw)
			require.NoError(t, err)
			hdoc, err := e.Hardware(ctx, hwID)
			require.NoError(t, err)

			swID, err := e.CreateSoftware(ctx, policy.RootAdmin, office())
			require.NoError(t, err)
			sw := office()
			sw.Name, sw.Brand, sw.VersionNumber = "Acrobat", "Adobe", "2024"
			sw.Description = "PDF"
			sres, err := e.ReconcileSoftware(ctx, tc.role, swID, sw)
			require.NoError(t, err)
			sdoc, err := e.Software(ctx, swID)
			require.NoError(t, err)

			if tc.applied {
				assert.Equal(t, []string{"Desktop", "Dell", "Tower", "OptiPlex", "Reception"},
					[]string{hdoc.Name, hdoc.Brand, hdoc.Type, hdoc.ModelNumber, hdoc.Description})
				assert.Equal(t, []string{"Acrobat", "Adobe", "2024", "PDF"},
					[]string{sdoc.Name, sdoc.Brand, sdoc.VersionNumber, sdoc.Description})
				assert.NotEmpty(t, res.Parent)
				assert.NotEmpty(t, sres.Parent)
				return
			}
			assert.Equal(t, []string{"Laptop", "Lenovo", "Notebook", "T14", "Standard issue"},
				[]string{hdoc.Name, hdoc.Brand, hdoc.Type, hdoc.ModelNumber, hdoc.Description})
			assert.Equal(t, []string{"Office", "Microsoft", "365", "Suite"},
				[]string{sdoc.Name, sdoc.Brand, sdoc.VersionNumber, sdoc.Description})
			assert.Empty(t, res.Parent)
			assert.Empty(t, sres.Parent)
		})
	}
}
