package builtin

import (
	"regexp"
	"strconv"
	"strings"

	"cardpipe/internal/records"
)

// Annotation columns attached to rejected rows.
const (
	ColOrigin      = "origen"
	ColError       = "error"
	ColErrorDetail = "error_detalle"

	OriginCustomers = "CLIENTES"
	OriginCards     = "TARJETAS"

	ErrCustomerValidation = "validacion_cliente"
	ErrCardValidation     = "validacion_tarjeta"

	ReasonBadNationalID = "dni_invalido"
	ReasonBadPhone      = "telefono_invalido"
	ReasonBadEmail      = "correo_invalido"
	ReasonUnknown       = "desconocido"
)

// dniLetters is the checksum table: the valid letter for a national id is
// dniLetters[numeric_part mod 23].
const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	dniPattern   = regexp.MustCompile(`^[0-9]{8}[A-Z]$`)
	phonePattern = regexp.MustCompile(`^[0-9]{9}$`)
)

// ValidateCustomers checks the three customer rules, stamps the OK/KO flag
// pairs on every row, and splits the batch: valid rows are returned, invalid
// rows are annotated (origin, category, pipe-joined reasons) and handed to
// the Reject sink. The national id of a valid row is masked in place; a
// rejected row keeps the unmasked value only when MaskRejected is false.
type ValidateCustomers struct {
	// StrictChecksum verifies the checksum letter; when false only the
	// 8-digits-plus-letter structure is required.
	StrictChecksum bool

	// MaskRejected masks the national id on rejected rows too.
	MaskRejected bool

	// Reject receives each annotated rejected row. May be nil.
	Reject func(records.Record)
}

func (v ValidateCustomers) Apply(in []records.Record) []records.Record {
	out := make([]records.Record, 0, len(in))
	for _, r := range in {
		dni, _ := r.Str(ColNationalID)
		phone, _ := r.Str(ColPhone)
		email, _ := r.Str(ColEmail)

		idOK := validNationalID(dni, v.StrictChecksum)
		phoneOK := validPhone(phone)
		emailOK := validEmail(email)

		setFlags(r, "dni", idOK)
		setFlags(r, "telefono", phoneOK)
		setFlags(r, "correo", emailOK)

		if idOK && phoneOK && emailOK {
			if dni != "" {
				r[ColNationalID] = maskNationalID(dni)
			}
			out = append(out, r)
			continue
		}

		rej := records.Clone(r)
		rej[ColOrigin] = OriginCustomers
		rej[ColError] = ErrCustomerValidation
		rej[ColErrorDetail] = customerDetail(idOK, phoneOK, emailOK)
		if v.MaskRejected && dni != "" {
			rej[ColNationalID] = maskNationalID(dni)
		}
		if v.Reject != nil {
			v.Reject(rej)
		}
	}
	return out
}

// customerDetail joins the failing fields in fixed id, phone, email order.
func customerDetail(idOK, phoneOK, emailOK bool) string {
	var reasons []string
	if !idOK {
		reasons = append(reasons, ReasonBadNationalID)
	}
	if !phoneOK {
		reasons = append(reasons, ReasonBadPhone)
	}
	if !emailOK {
		reasons = append(reasons, ReasonBadEmail)
	}
	if len(reasons) == 0 {
		return ReasonUnknown
	}
	return strings.Join(reasons, "|")
}

// validNationalID accepts exactly 8 digits followed by one uppercase letter.
// In strict mode the letter must additionally match the checksum table.
func validNationalID(s string, strict bool) bool {
	if !dniPattern.MatchString(s) {
		return false
	}
	if !strict {
		return true
	}
	n, err := strconv.Atoi(s[:8])
	if err != nil {
		return false
	}
	return dniLetters[n%23] == s[8]
}

// validPhone accepts exactly 9 digits. The cleaner has already stripped
// non-digits, so a "+34"-prefixed number arrives here with 11+ digits and
// fails.
func validPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// validEmail requires one '@' with non-empty local and domain parts and a
// '.' somewhere in the domain.
func validEmail(s string) bool {
	at := strings.Count(s, "@")
	if at != 1 {
		return false
	}
	local, domain, _ := strings.Cut(s, "@")
	return local != "" && domain != "" && strings.Contains(domain, ".")
}

// setFlags writes the <field>_ok / <field>_ko pair; exactly one of the two
// is "Y" for every row.
func setFlags(r records.Record, field string, ok bool) {
	if ok {
		r[field+"_ok"], r[field+"_ko"] = "Y", "N"
	} else {
		r[field+"_ok"], r[field+"_ko"] = "N", "Y"
	}
}
