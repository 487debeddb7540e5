package api

import (
	"io"
	"mime/multipart"
	"net/http"

	basemodels "github.com/AurumGate/AurumGate-Portal/models"
	"github.com/AurumGate/AurumGate-Portal/services/registration"
	"github.com/AurumGate/AurumGate-Portal/services/session"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Registration struct {
	server *Server
}

func (r Registration) router(server *Server) {
	r.server = server

	serverGroupV1 := server.router.Group("/api/v1/register")
	serverGroupV1.POST("", r.start)
	serverGroupV1.GET(":id", r.status)
	serverGroupV1.PUT(":id/step1", r.setStepOne)
	serverGroupV1.PUT(":id/step2", r.setStepTwo)
	serverGroupV1.PUT(":id/step3", r.setStepThree)
	serverGroupV1.POST(":id/next", r.next)
	serverGroupV1.POST(":id/previous", r.previous)
	serverGroupV1.POST(":id/availability", r.availability)
	serverGroupV1.POST(":id/branches/retry", r.retryBranches)
	serverGroupV1.POST(":id/submit", r.submit)
	serverGroupV1.DELETE(":id", r.cancel)

	kycGroup := server.router.Group("/api/v1/kyc", server.SessionMiddleware())
	kycGroup.POST("", r.submitKYC)
}

func (r *Registration) start(ctx *gin.Context) {
	id, fc := r.server.portal.NewFlow(ctx.Request.Context())
	_, brState := fc.Flow.Branches()

	ctx.JSON(http.StatusCreated, basemodels.NewSuccess("registration started", gin.H{
		"flow_id":  id,
		"step":     fc.Flow.Step(),
		"branches": brState,
	}))
}

func (r *Registration) flow(ctx *gin.Context) (*registration.Flow, *registration.AvailabilityChecker, bool) {
	fc, ok := r.server.portal.Flow(ctx.Param("id"))
	if !ok {
		ctx.JSON(http.StatusNotFound, basemodels.NewError("no such registration in progress"))
		return nil, nil, false
	}
	return fc.Flow, fc.Checker, true
}

func (r *Registration) status(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	branches, brState := flow.Branches()
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("registration status", gin.H{
		"step":         flow.Step(),
		"state":        flow.State(),
		"branch_state": brState,
		"branches":     branches,
		"field_errors": flow.AsyncErrors(),
	}))
}

func (r *Registration) setStepOne(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	var data registration.StepOneData
	if err := ctx.ShouldBindJSON(&data); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow.SetStepOne(data)
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("saved", gin.H{"errors": flow.Validate(1)}))
}

func (r *Registration) setStepTwo(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	var data registration.StepTwoData
	if err := ctx.ShouldBindJSON(&data); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow.SetStepTwo(data)
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("saved", gin.H{"errors": flow.Validate(2)}))
}

// setStepThree accepts the identity documents as multipart uploads.
func (r *Registration) setStepThree(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	data := registration.StepThreeData{
		IdentityType:   ctx.PostForm("identity_type"),
		IdentityNumber: ctx.PostForm("identity_number"),
	}

	var err error
	if data.IdentityFront, err = readUpload(ctx, "identity_front"); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if data.IdentityBack, err = readUpload(ctx, "identity_back"); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow.SetStepThree(data)
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("saved", gin.H{"errors": flow.Validate(3)}))
}

func (r *Registration) next(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	errs, err := flow.Next()
	if err != nil {
		ctx.JSON(http.StatusConflict, basemodels.NewError(err.Error()))
		return
	}
	if len(errs) > 0 {
		ctx.JSON(http.StatusUnprocessableEntity, basemodels.NewFieldErrors("fix the highlighted fields", errs))
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("step passed", gin.H{"step": flow.Step()}))
}

func (r *Registration) previous(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	if err := flow.Previous(); err != nil {
		ctx.JSON(http.StatusConflict, basemodels.NewError(err.Error()))
		return
	}

	ctx.JSON(http.StatusOK, basemodels.NewSuccess("stepped back", gin.H{"step": flow.Step()}))
}

type availabilityRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// availability schedules a debounced uniqueness check; the outcome lands in
// the flow's async field errors, readable via status.
func (r *Registration) availability(ctx *gin.Context) {
	flow, checker, ok := r.flow(ctx)
	if !ok {
		return
	}

	var request availabilityRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch request.Field {
	case "username":
		checker.CheckUsername(request.Value, flow.SetAsyncError)
	case "email":
		checker.CheckEmail(request.Value, flow.SetAsyncError)
	default:
		ctx.JSON(http.StatusBadRequest, basemodels.NewError("unknown availability field"))
		return
	}

	ctx.JSON(http.StatusAccepted, basemodels.NewSuccess("check scheduled", nil))
}

func (r *Registration) retryBranches(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	flow.LoadBranches(ctx.Request.Context())
	branches, brState := flow.Branches()
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("branches", gin.H{
		"branch_state": brState,
		"branches":     branches,
	}))
}

func (r *Registration) submit(ctx *gin.Context) {
	flow, _, ok := r.flow(ctx)
	if !ok {
		return
	}

	result, errs, err := flow.Submit(ctx.Request.Context())
	if err == registration.ErrNotSubmittable {
		ctx.JSON(http.StatusUnprocessableEntity, basemodels.NewFieldErrors("fix the highlighted fields", errs))
		return
	}
	if err != nil {
		r.server.logger.Log(logrus.ErrorLevel, err.Error())
		ctx.JSON(http.StatusBadGateway, basemodels.NewError("registration failed, your entries are preserved"))
		return
	}

	r.server.portal.DropFlow(ctx.Param("id"))
	ctx.JSON(http.StatusCreated, basemodels.NewSuccess("account created successfully", result))
}

func (r *Registration) cancel(ctx *gin.Context) {
	r.server.portal.DropFlow(ctx.Param("id"))
	ctx.JSON(http.StatusOK, basemodels.NewSuccess("registration discarded", nil))
}

// submitKYC accepts either account shape; the variant picks the upstream
// endpoint and the required field/file sets.
func (r *Registration) submitKYC(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := registration.KYCSubmission{
		Variant: registration.AccountVariant(ctx.PostForm("account_type")),
		Fields:  map[string]string{},
		Files:   map[string]*registration.FileUpload{},
	}
	for k, v := range form.Value {
		if len(v) > 0 {
			sub.Fields[k] = v[0]
		}
	}
	for field, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		upload, err := openUpload(headers[0])
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sub.Files[field] = upload
	}

	sess := ctx.MustGet("session").(*session.Session)

	errs, err := registration.SubmitKYC(ctx.Request.Context(), r.server.portal.KYCBackend(sess.Token), sub)
	if err == registration.ErrNotSubmittable {
		ctx.JSON(http.StatusUnprocessableEntity, basemodels.NewFieldErrors("fix the highlighted fields", errs))
		return
	}
	if err != nil {
		r.server.logger.Log(logrus.ErrorLevel, err.Error())
		ctx.JSON(http.StatusBadGateway, basemodels.NewError("KYC submission failed, try again"))
		return
	}

	ctx.JSON(http.StatusCreated, basemodels.NewSuccess("KYC submitted", nil))
}

func readUpload(ctx *gin.Context, field string) (*registration.FileUpload, error) {
	header, err := ctx.FormFile(field)
	if err != nil {
		// Missing file is a validation concern, not a transport error.
		return nil, nil
	}
	return openUpload(header)
}

func openUpload(header *multipart.FileHeader) (*registration.FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, registration.MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	return &registration.FileUpload{FileName: header.Filename, Content: content}, nil
}
