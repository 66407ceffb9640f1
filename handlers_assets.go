package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"inventory/models"
	"inventory/pkg/policy"
	"inventory/pkg/query"
	"inventory/pkg/reconcile"
	"inventory/pkg/status"
	"inventory/pkg/store"
)

const (
	defaultRows     = 5
	nearExpiryDays  = 7
	defaultUserRows = 100
)

// hardwareListRow is a hardware header plus the status column of the list.
type hardwareListRow struct {
	models.Hardware
	Status any `json:"status"`
}

func parseSearch(c *gin.Context, rows int) (query.Search, bool) {
	s, err := query.Parse(c.Query("search"), rows)
	if err != nil {
		respondError(c, err)
		return query.Search{}, false
	}
	return s, true
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
		return 0, false
	}
	return uint(id), true
}

func bindBody(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		logFor(c).WithError(err).Debug("malformed request body")
		c.JSON(http.StatusBadRequest, gin.H{"message": "Malformed request body"})
		return false
	}
	return true
}

func respondList[T any](c *gin.Context, rows []T, total int64) {
	if rows == nil {
		rows = []T{}
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "totalRecords": total})
}

// statusLabels maps status ids to labels.
func statusLabels(c *gin.Context) (map[uint]string, error) {
	rows, _, err := st.Statuses.Search(c.Request.Context(), query.All())
	if err != nil {
		return nil, err
	}
	labels := make(map[uint]string, len(rows))
	for _, s := range rows {
		labels[s.ID] = s.Label
	}
	return labels, nil
}

func listHardwareHandler(c *gin.Context) {
	search, ok := parseSearch(c, defaultRows)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	rows, total, err := st.Hardware.Search(ctx, search)
	if err != nil {
		respondError(c, err)
		return
	}
	labels, err := statusLabels(c)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]hardwareListRow, 0, len(rows))
	for _, hw := range rows {
		instances, err := st.HardwareInstances.ListByParent(ctx, hw.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		var names []string
		for _, inst := range instances {
			if id := status.ForDetail(inst.StatusID); id != nil {
				names = append(names, labels[*id])
			}
		}
		out = append(out, hardwareListRow{Hardware: hw, Status: status.ForList(names)})
	}
	respondList(c, out, total)
}

func createHardwareHandler(c *gin.Context) {
	var in reconcile.HardwareInput
	if !bindBody(c, &in) {
		return
	}
	id, err := engine.CreateHardware(c.Request.Context(), actorRole(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": id})
}

func getHardwareHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, err := engine.Hardware(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func updateHardwareHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in reconcile.HardwareInput
	if !bindBody(c, &in) {
		return
	}
	_, err := engine.ReconcileHardware(c.Request.Context(), actorRole(c), id, in)
	countReconcile("hardware", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successful"})
}

func deleteHardwareHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := engine.DeleteHardware(c.Request.Context(), actorRole(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func listSoftwareHandler(c *gin.Context) {
	search, ok := parseSearch(c, defaultRows)
	if !ok {
		return
	}
	rows, total, err := st.Software.Search(c.Request.Context(), search)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rows, total)
}

func createSoftwareHandler(c *gin.Context) {
	var in reconcile.SoftwareInput
	if !bindBody(c, &in) {
		return
	}
	id, err := engine.CreateSoftware(c.Request.Context(), actorRole(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": id})
}

func getSoftwareHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, err := engine.Software(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

func updateSoftwareHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var in reconcile.SoftwareInput
	if !bindBody(c, &in) {
		return
	}
	_, err := engine.ReconcileSoftware(c.Request.Context(), actorRole(c), id, in)
	countReconcile("software", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "successful"})
}

func deleteSoftwareHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := engine.DeleteSoftware(c.Request.Context(), actorRole(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func hardwareInstancesFor(c *gin.Context, search query.Search) {
	rows, total, err := st.HardwareInstances.Search(c.Request.Context(), search)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range rows {
		rows[i].StatusID = status.ForDetail(rows[i].StatusID)
	}
	respondList(c, rows, total)
}

func softwareInstancesFor(c *gin.Context, search query.Search) {
	rows, total, err := st.SoftwareInstances.Search(c.Request.Context(), search)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range rows {
		rows[i].StatusID = status.ForDetail(rows[i].StatusID)
	}
	respondList(c, rows, total)
}

func listHardwareInstancesHandler(c *gin.Context) {
	if search, ok := parseSearch(c, defaultRows); ok {
		hardwareInstancesFor(c, search)
	}
}

func listSoftwareInstancesHandler(c *gin.Context) {
	if search, ok := parseSearch(c, defaultRows); ok {
		softwareInstancesFor(c, search)
	}
}

func listStatusesHandler(c *gin.Context) {
	rows, total, err := st.Statuses.Search(c.Request.Context(), query.All())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rows, total)
}

// listUserTypesHandler lists the types a user may be given. Root admins are
// only ever seeded, so that type is left out.
func listUserTypesHandler(c *gin.Context) {
	s := query.All().With("id", query.OpNotEqual, uint(policy.RootAdmin))
	rows, total, err := st.UserTypes.Search(c.Request.Context(), s)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, rows, total)
}

// softwareNearExpiryHandler lists the instances of software whose expiration
// date falls within the next week (or has already passed).
func softwareNearExpiryHandler(c *gin.Context) {
	search, ok := parseSearch(c, defaultRows)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	cutoff := now().AddDate(0, 0, nearExpiryDays).Format(models.DateLayout)
	expiring, _, err := st.Software.Search(ctx, query.All().With("expiration_date", query.OpDateBeforeOrEqual, cutoff))
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make(map[uint]bool, len(expiring))
	for _, sw := range expiring {
		ids[sw.ID] = true
	}

	page := search
	page.Rows = query.Unpaged
	rows, _, err := st.SoftwareInstances.Search(ctx, page)
	if err != nil {
		respondError(c, err)
		return
	}
	matched := make([]models.SoftwareInstance, 0, len(rows))
	for _, inst := range rows {
		if ids[inst.SoftwareID] {
			inst.StatusID = status.ForDetail(inst.StatusID)
			matched = append(matched, inst)
		}
	}
	start, end := search.Window(len(matched))
	respondList(c, matched[start:end], int64(len(matched)))
}

func hardwareNeedingMaintenanceHandler(c *gin.Context) {
	if search, ok := parseSearch(c, defaultRows); ok {
		hardwareInstancesFor(c, search.With("status", query.OpEqual, statusForRepair))
	}
}

func hardwareNotAssignedHandler(c *gin.Context) {
	if search, ok := parseSearch(c, defaultRows); ok {
		hardwareInstancesFor(c, search.With("assignee", query.OpEmpty, nil))
	}
}

func softwareNotAssignedHandler(c *gin.Context) {
	if search, ok := parseSearch(c, defaultRows); ok {
		softwareInstancesFor(c, search.With("assignee", query.OpEmpty, nil))
	}
}

// isNotFound reports whether err means the requested row does not exist.
func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
