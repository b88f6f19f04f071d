package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"smy-nav-backend/internal/domain"
	"smy-nav-backend/internal/service"
	"smy-nav-backend/internal/storage"
)

const maxMultipartMemory = 32 << 20

// participantForm is the personal data part of participant create and
// submission requests, sent as multipart fields or JSON.
type participantForm struct {
	FullName        string `json:"fullName" validate:"required,min=2,max=255"`
	NIK             string `json:"nik" validate:"omitempty,nik"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone" validate:"omitempty,idphone"`
	BirthPlace      string `json:"birthPlace" validate:"omitempty,max=100"`
	BirthDate       string `json:"birthDate"`
	Gender          string `json:"gender" validate:"omitempty,oneof=male female"`
	Address         string `json:"address" validate:"omitempty,min=10,max=500"`
	SeafarerCode    string `json:"seafarerCode" validate:"omitempty,max=50"`
	MotherName      string `json:"motherName" validate:"omitempty,max=255"`
	TrainingProgram string `json:"trainingProgram" validate:"omitempty,program"`
	PaymentOption   string `json:"paymentOption" validate:"omitempty,oneof=pay_now pay_later"`
}

func (f participantForm) data() (service.ParticipantData, error) {
	d := service.ParticipantData{
		FullName:        strings.TrimSpace(f.FullName),
		NIK:             strings.TrimSpace(f.NIK),
		Email:           strings.TrimSpace(f.Email),
		Phone:           strings.TrimSpace(f.Phone),
		BirthPlace:      f.BirthPlace,
		Gender:          f.Gender,
		Address:         f.Address,
		SeafarerCode:    f.SeafarerCode,
		MotherName:      f.MotherName,
		TrainingProgram: f.TrainingProgram,
		PaymentOption:   domain.PaymentOption(f.PaymentOption),
	}
	if f.BirthDate != "" {
		t, err := parseDate("birthDate", f.BirthDate)
		if err != nil {
			return d, err
		}
		d.BirthDate = &t
	}
	return d, nil
}

// updateForm carries only the fields present in the request.
type updateForm struct {
	FullName        *string `json:"fullName" validate:"omitempty,min=2,max=255"`
	NIK             *string `json:"nik" validate:"omitempty,nik"`
	Email           *string `json:"email" validate:"omitempty,email"`
	Phone           *string `json:"phone" validate:"omitempty,idphone"`
	BirthPlace      *string `json:"birthPlace" validate:"omitempty,max=100"`
	BirthDate       *string `json:"birthDate"`
	Gender          *string `json:"gender" validate:"omitempty,oneof=male female"`
	Address         *string `json:"address" validate:"omitempty,min=10,max=500"`
	SeafarerCode    *string `json:"seafarerCode" validate:"omitempty,max=50"`
	MotherName      *string `json:"motherName" validate:"omitempty,max=255"`
	TrainingProgram *string `json:"trainingProgram" validate:"omitempty,program"`
}

func (f updateForm) input() (service.UpdateParticipantInput, error) {
	in := service.UpdateParticipantInput{
		FullName:        f.FullName,
		NIK:             f.NIK,
		Email:           f.Email,
		Phone:           f.Phone,
		BirthPlace:      f.BirthPlace,
		Gender:          f.Gender,
		Address:         f.Address,
		SeafarerCode:    f.SeafarerCode,
		MotherName:      f.MotherName,
		TrainingProgram: f.TrainingProgram,
	}
	if f.BirthDate != nil && *f.BirthDate != "" {
		t, err := parseDate("birthDate", *f.BirthDate)
		if err != nil {
			return in, err
		}
		in.BirthDate = &t
	}
	return in, nil
}

func isMultipart(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "multipart/form-data"
}

func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return domain.NewValidationError("Invalid multipart form")
	}
	return nil
}

// fromValues copies multipart values into the string fields of a participantForm.
func (f *participantForm) fromValues(r *http.Request) {
	v := r.PostFormValue
	f.FullName = v("fullName")
	f.NIK = v("nik")
	f.Email = v("email")
	f.Phone = v("phone")
	f.BirthPlace = v("birthPlace")
	f.BirthDate = v("birthDate")
	f.Gender = v("gender")
	f.Address = v("address")
	f.SeafarerCode = v("seafarerCode")
	f.MotherName = v("motherName")
	f.TrainingProgram = v("trainingProgram")
	f.PaymentOption = v("paymentOption")
}

func (f *updateForm) fromValues(r *http.Request) {
	present := func(key string) *string {
		if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
			s := vs[0]
			return &s
		}
		return nil
	}
	f.FullName = present("fullName")
	f.NIK = present("nik")
	f.Email = present("email")
	f.Phone = present("phone")
	f.BirthPlace = present("birthPlace")
	f.BirthDate = present("birthDate")
	f.Gender = present("gender")
	f.Address = present("address")
	f.SeafarerCode = present("seafarerCode")
	f.MotherName = present("motherName")
	f.TrainingProgram = present("trainingProgram")
}

// documents reads every document field present in the multipart form.
func documents(r *http.Request, limits storage.Limits) ([]*storage.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var files []*storage.File
	for _, kind := range domain.DocumentKinds {
		fhs := r.MultipartForm.File[kind]
		if len(fhs) == 0 {
			continue
		}
		f, err := limits.Read(kind, fhs[0])
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// optionalFile reads field when it was uploaded.
func optionalFile(r *http.Request, limits storage.Limits, field string) (*storage.File, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, nil
	}
	return limits.Read(field, r.MultipartForm.File[field][0])
}

func formInt32(r *http.Request, key string) (*int32, error) {
	s := strings.TrimSpace(r.PostFormValue(key))
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v <= 0 {
		return nil, &domain.ValidationError{Message: "Invalid " + key, Fields: map[string]string{key: "invalid"}}
	}
	id := int32(v)
	return &id, nil
}

// programsValue accepts a JSON array string or repeated form values.
func programsValue(r *http.Request) ([]string, error) {
	for _, key := range []string{"trainingPrograms", "programs"} {
		vs := r.PostForm[key]
		if len(vs) == 0 {
			vs = r.PostForm[key+"[]"]
		}
		if len(vs) == 0 {
			continue
		}
		if len(vs) == 1 && strings.HasPrefix(strings.TrimSpace(vs[0]), "[") {
			var programs []string
			if err := json.Unmarshal([]byte(vs[0]), &programs); err != nil {
				return nil, &domain.ValidationError{
					Message: "Invalid training programs format or values",
					Fields:  map[string]string{"trainingPrograms": "invalid"},
				}
			}
			return programs, nil
		}
		return vs, nil
	}
	return nil, nil
}

// decodeOptional decodes a JSON body when one was sent.
func decodeOptional(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return domain.NewValidationError("Invalid request body")
	}
	return nil
}
