package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/repository"
	"smy-nav-backend/internal/storage"
)

const documentPath = "documents"

var nikPattern = regexp.MustCompile(`^[0-9]{16}$`)

type participantService struct {
	tx           repository.Transactor
	participants repository.ParticipantRepository
	agencies     repository.AgencyRepository
	history      repository.PaymentHistoryRepository
	invoices     InvoiceService
	batches      BatchService
	store        storage.Storage
	catalog      config.TrainingCatalog
	now          func() time.Time
}

func NewParticipantService(tx repository.Transactor, participants repository.ParticipantRepository, agencies repository.AgencyRepository,
	history repository.PaymentHistoryRepository, invoices InvoiceService, batches BatchService,
	store storage.Storage, catalog config.TrainingCatalog) ParticipantService {
	return &participantService{
		tx:           tx,
		participants: participants,
		agencies:     agencies,
		history:      history,
		invoices:     invoices,
		batches:      batches,
		store:        store,
		catalog:      catalog,
		now:          time.Now,
	}
}

// ownerAgency resolves the agency a new record belongs to. Agents always
// register for their own agency.
func ownerAgency(actor domain.Actor, requested *int32) (int32, error) {
	switch {
	case actor.Role == domain.RoleAgent:
		if actor.AgencyID == nil {
			return 0, domain.ErrForbidden
		}
		return *actor.AgencyID, nil
	case actor.Role.IsAdmin():
		if requested == nil {
			return 0, &domain.ValidationError{Message: "Agency is required", Fields: map[string]string{"agencyId": "required"}}
		}
		return *requested, nil
	}
	return 0, domain.ErrForbidden
}

func (s *participantService) validate(d ParticipantData, requireNIK bool) error {
	fields := map[string]string{}
	if n := len(strings.TrimSpace(d.FullName)); n < 2 || n > 255 {
		fields["fullName"] = "Full name must be between 2 and 255 characters"
	}
	if requireNIK && !nikPattern.MatchString(d.NIK) {
		fields["nik"] = "NIK must be exactly 16 digits"
	}
	if !s.catalog.Has(d.TrainingProgram) {
		fields["trainingProgram"] = "Invalid training program"
	}
	if d.Gender != "" && d.Gender != "male" && d.Gender != "female" {
		fields["gender"] = "Gender must be either male or female"
	}
	if d.Address != "" && (len(d.Address) < 10 || len(d.Address) > 500) {
		fields["address"] = "Address must be between 10 and 500 characters"
	}
	if d.PaymentOption != "" && !d.PaymentOption.Valid() {
		fields["paymentOption"] = "Payment option must be pay_now or pay_later"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Message: "Validation failed", Fields: fields}
	}
	return nil
}

func newDraft(d ParticipantData, createdBy int32) *domain.Participant {
	p := &domain.Participant{
		FullName:        strings.TrimSpace(d.FullName),
		Email:           strings.ToLower(strings.TrimSpace(d.Email)),
		Phone:           d.Phone,
		BirthPlace:      d.BirthPlace,
		BirthDate:       d.BirthDate,
		Gender:          d.Gender,
		Address:         d.Address,
		SeafarerCode:    d.SeafarerCode,
		MotherName:      d.MotherName,
		TrainingProgram: d.TrainingProgram,
		Status:          domain.ParticipantStatusDraft,
		Documents:       map[string]domain.StoredFile{},
		PaymentOption:   d.PaymentOption,
		CreatedBy:       createdBy,
	}
	if d.NIK != "" {
		nik := d.NIK
		p.NIK = &nik
	}
	if !p.PaymentOption.Valid() {
		p.PaymentOption = domain.PaymentOptionPayLater
	}
	p.SyncProgress()
	return p
}

func (s *participantService) ensureNIKFree(ctx context.Context, nik *string, excludeID int32) error {
	if nik == nil {
		return nil
	}
	exists, err := s.participants.NIKExists(ctx, *nik, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return errNIKExists()
	}
	return nil
}

// missingDocument returns the first required kind absent from have.
func missingDocument(required []string, have map[string]bool) string {
	for _, kind := range required {
		if !have[kind] {
			return kind
		}
	}
	return ""
}

// missingForSubmit returns the first required document p lacks. The BST
// certificate is skipped when it was waived at agency submission.
func (s *participantService) missingForSubmit(p *domain.Participant) string {
	program, _ := s.catalog.Get(p.TrainingProgram)
	have := map[string]bool{}
	for kind := range p.Documents {
		have[kind] = true
	}
	if p.BSTCertificateWaived {
		have[domain.DocumentSertifikatBST] = true
	}
	return missingDocument(program.RequiredDocuments, have)
}

func fileKinds(files []*storage.File) map[string]bool {
	have := map[string]bool{}
	for _, f := range files {
		if f != nil {
			have[f.Field] = true
		}
	}
	return have
}

// storeDocuments saves every file, removing the ones already stored when a
// later save fails.
func (s *participantService) storeDocuments(ctx context.Context, files []*storage.File) (map[string]domain.StoredFile, []*domain.StoredFile, error) {
	docs := map[string]domain.StoredFile{}
	var stored []*domain.StoredFile
	for _, f := range files {
		if f == nil {
			continue
		}
		if !domain.IsDocumentKind(f.Field) {
			_ = storage.DeleteAll(ctx, s.store, stored)
			return nil, nil, &domain.ValidationError{Message: "Unknown document type: " + f.Field, Fields: map[string]string{f.Field: "unknown"}}
		}
		sf, err := s.store.Save(ctx, documentPath, f)
		if err != nil {
			_ = storage.DeleteAll(ctx, s.store, stored)
			return nil, nil, err
		}
		stored = append(stored, sf)
		docs[f.Field] = *sf
	}
	return docs, stored, nil
}

func (s *participantService) cleanup(ctx context.Context, stored []*domain.StoredFile) {
	if err := storage.DeleteAll(ctx, s.store, stored); err != nil {
		logger.WarnContext(ctx, "Failed to remove uploads of failed request", "error", err)
	}
}

func (s *participantService) Create(ctx context.Context, actor domain.Actor, in CreateParticipantInput) (*domain.Participant, error) {
	logger.EnterMethod("participantService.Create", "program", in.TrainingProgram)

	agencyID, err := ownerAgency(actor, in.AgencyID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in.ParticipantData, true); err != nil {
		return nil, err
	}
	program, _ := s.catalog.Get(in.TrainingProgram)
	if kind := missingDocument(program.RequiredDocuments, fileKinds(in.Documents)); kind != "" {
		return nil, &domain.ValidationError{Message: "Required document missing: " + kind, Fields: map[string]string{kind: "required"}}
	}

	docs, stored, err := s.storeDocuments(ctx, in.Documents)
	if err != nil {
		return nil, err
	}
	var proof *domain.StoredFile
	if in.PaymentProof != nil {
		if proof, err = s.store.Save(ctx, paymentProofPath, in.PaymentProof); err != nil {
			s.cleanup(ctx, stored)
			return nil, err
		}
		stored = append(stored, proof)
	}

	p := newDraft(in.ParticipantData, actor.UserID)
	p.AgencyID = &agencyID
	p.Documents = docs

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		agency, err := s.agencies.GetByID(ctx, agencyID)
		if err != nil {
			return err
		}
		if err := s.ensureNIKFree(ctx, p.NIK, 0); err != nil {
			return err
		}
		if err := s.insert(ctx, agency.Code, p, proof, actor.UserID); err != nil {
			return err
		}
		_, err = s.invoices.AttachParticipants(ctx, agencyID, p.TrainingProgram, []int32{p.ID}, p.PaymentOption)
		return err
	})
	if err != nil {
		s.cleanup(ctx, stored)
		logger.ExitMethodWithError("participantService.Create", err)
		return nil, err
	}

	logger.InfoContext(ctx, "Participant created", "registration_number", p.RegistrationNumber, "agencyID", agencyID)
	logger.ExitMethod("participantService.Create", "participantID", p.ID)
	return p, nil
}

// insert allocates the registration number, writes p and records the first
// payment submission when a proof came with the registration.
func (s *participantService) insert(ctx context.Context, agencyCode string, p *domain.Participant, proof *domain.StoredFile, actorID int32) error {
	if proof != nil {
		p.PaymentVersion, p.PaymentStatus = domain.NextPaymentSubmission(p.PaymentOption, domain.PaymentStatusNone, 0, false)
		p.PaymentProof = proof
	}
	if err := createWithRegistrationNumber(ctx, s.participants, agencyCode, p); err != nil {
		return err
	}
	if proof == nil {
		return nil
	}
	return s.history.Append(ctx, &domain.PaymentHistoryEntry{
		SubjectType: domain.PaymentSubjectParticipant,
		SubjectID:   p.ID,
		Version:     p.PaymentVersion,
		Status:      p.PaymentStatus,
		Proof:       proof,
		ActorID:     &actorID,
	})
}

// AgencySubmission registers one person for several programs at once. The
// uploaded documents are shared by every record created.
func (s *participantService) AgencySubmission(ctx context.Context, actor domain.Actor, in AgencySubmissionInput) ([]domain.Participant, error) {
	logger.EnterMethod("participantService.AgencySubmission", "programs", in.Programs)

	agencyID, err := ownerAgency(actor, in.AgencyID)
	if err != nil {
		return nil, err
	}
	if len(in.Programs) == 0 {
		return nil, &domain.ValidationError{Message: "At least one training program is required", Fields: map[string]string{"programs": "required"}}
	}
	required, waived, err := s.submissionDocuments(in.Programs, in.BSTCertificateConfirmed)
	if err != nil {
		return nil, err
	}
	data := in.ParticipantData
	data.TrainingProgram = in.Programs[0]
	if err := s.validate(data, false); err != nil {
		return nil, err
	}
	if kind := missingDocument(required, fileKinds(in.Documents)); kind != "" {
		return nil, &domain.ValidationError{Message: "Required document missing: " + kind, Fields: map[string]string{kind: "required"}}
	}

	docs, stored, err := s.storeDocuments(ctx, in.Documents)
	if err != nil {
		return nil, err
	}
	var proof *domain.StoredFile
	if in.PaymentProof != nil {
		if proof, err = s.store.Save(ctx, paymentProofPath, in.PaymentProof); err != nil {
			s.cleanup(ctx, stored)
			return nil, err
		}
		stored = append(stored, proof)
	}

	var created []domain.Participant
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		agency, err := s.agencies.GetByID(ctx, agencyID)
		if err != nil {
			return err
		}
		for _, code := range in.Programs {
			d := in.ParticipantData
			d.TrainingProgram = code
			d.FullName = fmt.Sprintf("%s (%s)", strings.TrimSpace(in.FullName), code)
			// NIK stays empty so one person can hold a record per program.
			d.NIK = ""
			p := newDraft(d, actor.UserID)
			p.AgencyID = &agencyID
			p.Documents = docs
			p.BSTCertificateWaived = waived
			if err := s.insert(ctx, agency.Code, p, proof, actor.UserID); err != nil {
				return err
			}
			if _, err := s.invoices.AttachParticipants(ctx, agencyID, code, []int32{p.ID}, p.PaymentOption); err != nil {
				return err
			}
			created = append(created, *p)
		}
		return nil
	})
	if err != nil {
		s.cleanup(ctx, stored)
		logger.ExitMethodWithError("participantService.AgencySubmission", err)
		return nil, err
	}
	logger.ExitMethod("participantService.AgencySubmission", "created", len(created))
	return created, nil
}

// submissionDocuments returns the union of required documents for the
// programs. A prior BST certificate is demanded only when the person is not
// also taking BST or its refresher, in which case it must be confirmed.
// waived reports that the certificate was dropped for that reason.
func (s *participantService) submissionDocuments(programs []string, bstConfirmed bool) (docs []string, waived bool, err error) {
	seen := map[string]bool{}
	needsBST, hasBasic := false, false
	for _, code := range programs {
		if seen[code] {
			return nil, false, domain.NewValidationError("Duplicate training program: " + code)
		}
		seen[code] = true
		p, ok := s.catalog.Get(code)
		if !ok {
			return nil, false, &domain.ValidationError{Message: "Invalid training program: " + code, Fields: map[string]string{"programs": "invalid"}}
		}
		if p.RequiresBSTCertificate() {
			needsBST = true
		}
		if code == "BST" || code == "UPDATING_BST" {
			hasBasic = true
		}
	}
	bstRequired := needsBST && !hasBasic
	if bstRequired && !bstConfirmed {
		return nil, false, &domain.ValidationError{
			Message: "BST certificate confirmation is required for the selected programs",
			Fields:  map[string]string{"bstCertificateConfirmed": "required"},
		}
	}

	added := map[string]bool{}
	for _, code := range programs {
		p, _ := s.catalog.Get(code)
		for _, d := range p.RequiredDocuments {
			if d == domain.DocumentSertifikatBST && !bstRequired {
				continue
			}
			if !added[d] {
				added[d] = true
				docs = append(docs, d)
			}
		}
	}
	return docs, needsBST && hasBasic, nil
}

// SelfRegister creates the walk-in record of a participant account. It has no
// agency and so never joins an invoice.
func (s *participantService) SelfRegister(ctx context.Context, actor domain.Actor, in ParticipantData) (*domain.Participant, error) {
	if actor.Role != domain.RoleParticipant {
		return nil, domain.ErrForbidden
	}
	if err := s.validate(in, in.NIK != ""); err != nil {
		return nil, err
	}
	if in.PaymentOption == "" {
		in.PaymentOption = domain.PaymentOptionPayLater
	}

	p := newDraft(in, actor.UserID)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.participants.GetByCreator(ctx, actor.UserID)
		if err != nil && !isNotFound(err) {
			return err
		}
		if existing != nil {
			return &domain.ConflictError{Message: "Participant record already exists"}
		}
		if err := s.ensureNIKFree(ctx, p.NIK, 0); err != nil {
			return err
		}
		return createWithRegistrationNumber(ctx, s.participants, domain.SelfAgencyCode, p)
	})
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Participant self-registered", "registration_number", p.RegistrationNumber, "userID", actor.UserID)
	return p, nil
}

func (s *participantService) List(ctx context.Context, actor domain.Actor, f domain.ParticipantFilter) ([]domain.Participant, int, error) {
	switch {
	case actor.Role.IsAdmin():
		f.ExcludeDraft = len(f.Statuses) == 0
	case actor.Role == domain.RoleAgent:
		if actor.AgencyID == nil {
			return nil, 0, domain.ErrForbidden
		}
		f.AgencyID = actor.AgencyID
	case actor.Role == domain.RoleParticipant:
		p, err := s.participants.GetByCreator(ctx, actor.UserID)
		if isNotFound(err) {
			return []domain.Participant{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		return []domain.Participant{*p}, 1, nil
	default:
		return nil, 0, domain.ErrForbidden
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return s.participants.List(ctx, f)
}

// canAccess reports whether actor may see p. Agents see their agency and
// participants only their own record.
func canAccess(actor domain.Actor, p *domain.Participant) bool {
	switch {
	case actor.Role.IsAdmin():
		return true
	case actor.Role == domain.RoleAgent:
		return p.BelongsTo(actor.AgencyID)
	case actor.Role == domain.RoleParticipant:
		return p.CreatedBy == actor.UserID
	}
	return false
}

func (s *participantService) load(ctx context.Context, actor domain.Actor, id int32, forUpdate bool) (*domain.Participant, error) {
	var (
		p   *domain.Participant
		err error
	)
	if forUpdate {
		p, err = s.participants.GetByIDForUpdate(ctx, id)
	} else {
		p, err = s.participants.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, p) {
		return nil, domain.NotFound("participant")
	}
	return p, nil
}

func (s *participantService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Participant, error) {
	p, err := s.load(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}
	if p.History, err = s.history.List(ctx, domain.PaymentSubjectParticipant, id); err != nil {
		return nil, err
	}
	if p.AgencyID != nil {
		if p.Agency, err = s.agencies.GetByID(ctx, *p.AgencyID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func editable(p *domain.Participant) error {
	if p.Status != domain.ParticipantStatusDraft && p.Status != domain.ParticipantStatusRejected {
		return &domain.StateError{
			Action:  "update",
			Current: string(p.Status),
			Message: "Only participants with draft or rejected status can be updated",
		}
	}
	return nil
}

func (s *participantService) Update(ctx context.Context, actor domain.Actor, id int32, in UpdateParticipantInput) (*domain.Participant, error) {
	logger.EnterMethod("participantService.Update", "participantID", id)

	docs, stored, err := s.storeDocuments(ctx, in.Documents)
	if err != nil {
		return nil, err
	}

	var (
		p        *domain.Participant
		replaced []*domain.StoredFile
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.load(ctx, actor, id, true); err != nil {
			return err
		}
		if err := editable(p); err != nil {
			return err
		}
		if programChanged := applyUpdate(p, in); programChanged && p.InvoiceID != nil {
			return domain.NewValidationError("Training program cannot be changed after invoicing")
		}
		data := ParticipantData{FullName: p.FullName, TrainingProgram: p.TrainingProgram, Gender: p.Gender, Address: p.Address}
		if p.NIK != nil {
			data.NIK = *p.NIK
		}
		if err := s.validate(data, p.NIK != nil); err != nil {
			return err
		}
		if in.NIK != nil {
			if err := s.ensureNIKFree(ctx, p.NIK, p.ID); err != nil {
				return err
			}
		}
		replaced = mergeDocuments(p, docs)

		if p.Status == domain.ParticipantStatusRejected {
			p.Status = domain.ParticipantStatusDraft
			p.RejectionReason = ""
			p.SyncProgress()
		}
		return nikConflict(s.participants.Update(ctx, p))
	})
	if err != nil {
		s.cleanup(ctx, stored)
		logger.ExitMethodWithError("participantService.Update", err)
		return nil, err
	}
	if p.NIK != nil {
		s.cleanup(ctx, replaced)
	}
	logger.ExitMethod("participantService.Update", "participantID", id)
	return p, nil
}

// applyUpdate copies the set fields onto p and reports whether the program changed.
func applyUpdate(p *domain.Participant, in UpdateParticipantInput) bool {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.FullName, in.FullName)
	set(&p.Email, in.Email)
	set(&p.Phone, in.Phone)
	set(&p.BirthPlace, in.BirthPlace)
	set(&p.Gender, in.Gender)
	set(&p.Address, in.Address)
	set(&p.SeafarerCode, in.SeafarerCode)
	set(&p.MotherName, in.MotherName)
	if in.NIK != nil {
		nik := strings.TrimSpace(*in.NIK)
		p.NIK = &nik
		if nik == "" {
			p.NIK = nil
		}
	}
	if in.BirthDate != nil {
		p.BirthDate = in.BirthDate
	}
	changed := false
	if in.TrainingProgram != nil && *in.TrainingProgram != p.TrainingProgram {
		p.TrainingProgram = *in.TrainingProgram
		changed = true
	}
	return changed
}

// mergeDocuments sets the new documents on p and returns the files they replace.
func mergeDocuments(p *domain.Participant, docs map[string]domain.StoredFile) []*domain.StoredFile {
	if p.Documents == nil {
		p.Documents = map[string]domain.StoredFile{}
	}
	var replaced []*domain.StoredFile
	for kind, f := range docs {
		if old, ok := p.Documents[kind]; ok && old.PublicID != "" {
			old := old
			replaced = append(replaced, &old)
		}
		p.Documents[kind] = f
	}
	return replaced
}

func (s *participantService) Delete(ctx context.Context, actor domain.Actor, id int32) error {
	var p *domain.Participant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.load(ctx, actor, id, true); err != nil {
			return err
		}
		if p.Status != domain.ParticipantStatusDraft {
			return &domain.StateError{
				Action:  "delete",
				Current: string(p.Status),
				Message: "Only participants with draft status can be deleted",
			}
		}
		if err := s.invoices.DetachParticipant(ctx, p); err != nil {
			return err
		}
		return s.participants.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	// Agency submissions share their files across records.
	if p.NIK != nil {
		var files []*domain.StoredFile
		for _, f := range p.Documents {
			f := f
			files = append(files, &f)
		}
		s.cleanup(ctx, files)
	}
	logger.InfoContext(ctx, "Participant deleted", "registration_number", p.RegistrationNumber)
	return nil
}

func (s *participantService) UploadDocument(ctx context.Context, actor domain.Actor, id int32, kind string, f *storage.File) (*domain.Participant, error) {
	if !domain.IsDocumentKind(kind) {
		return nil, &domain.ValidationError{Message: "Unknown document type: " + kind, Fields: map[string]string{"kind": "invalid"}}
	}
	if f == nil {
		return nil, &domain.ValidationError{Message: "File is required", Fields: map[string]string{kind: "required"}}
	}
	f.Field = kind
	return s.Update(ctx, actor, id, UpdateParticipantInput{Documents: []*storage.File{f}})
}

func (s *participantService) Transition(ctx context.Context, actor domain.Actor, id int32, action domain.TransitionAction, opts TransitionOptions) (*domain.Participant, error) {
	logger.EnterMethod("participantService.Transition", "participantID", id, "action", action)

	if action == domain.ActionReject && strings.TrimSpace(opts.Reason) == "" {
		return nil, &domain.ValidationError{Message: "Rejection reason is required", Fields: map[string]string{"reason": "required"}}
	}

	var p *domain.Participant
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = s.load(ctx, actor, id, true); err != nil {
			return err
		}
		if err := p.Apply(action); err != nil {
			return err
		}
		if action == domain.ActionSubmit {
			if kind := s.missingForSubmit(p); kind != "" {
				return &domain.ValidationError{Message: "Required document missing: " + kind, Fields: map[string]string{kind: "required"}}
			}
		}

		now := s.now()
		switch action {
		case domain.ActionReject:
			p.RejectionReason = strings.TrimSpace(opts.Reason)
		case domain.ActionVerify:
			p.VerifiedAt, p.VerifiedBy = &now, &actor.UserID
		case domain.ActionAssignBatch:
			if _, err := s.batches.Assign(ctx, p, opts.BatchID); err != nil {
				return err
			}
		}
		return s.participants.Update(ctx, p)
	})
	if err != nil {
		logger.ExitMethodWithError("participantService.Transition", err)
		return nil, err
	}
	logger.InfoContext(ctx, "Participant status changed", "registration_number", p.RegistrationNumber, "status", p.Status)
	return p, nil
}
