package domain

import "time"

// EvidenceType enumerates the required proof-of-work artifacts.
type EvidenceType string

const (
	EvidenceNamaODP              EvidenceType = "NAMA_ODP"
	EvidenceSNONT                EvidenceType = "SN_ONT"
	EvidenceFotoSNONT            EvidenceType = "FOTO_SN_ONT"
	EvidenceFotoTeknisiPelanggan EvidenceType = "FOTO_TEKNISI_PELANGGAN"
	EvidenceFotoRumahPelanggan   EvidenceType = "FOTO_RUMAH_PELANGGAN"
	EvidenceFotoDepanODP         EvidenceType = "FOTO_DEPAN_ODP"
	EvidenceFotoDalamODP         EvidenceType = "FOTO_DALAM_ODP"
	EvidenceFotoLabelDC          EvidenceType = "FOTO_LABEL_DC"
	EvidenceFotoTestRedaman      EvidenceType = "FOTO_TEST_REDAMAN"
)

// EvidenceTypes lists all required artifact slots in display order.
var EvidenceTypes = []EvidenceType{
	EvidenceNamaODP, EvidenceSNONT, EvidenceFotoSNONT, EvidenceFotoTeknisiPelanggan,
	EvidenceFotoRumahPelanggan, EvidenceFotoDepanODP, EvidenceFotoDalamODP,
	EvidenceFotoLabelDC, EvidenceFotoTestRedaman,
}

// IsText reports whether the slot takes a text value instead of a file.
func (t EvidenceType) IsText() bool {
	return t == EvidenceNamaODP || t == EvidenceSNONT
}

// Valid reports whether t is one of the fixed slots.
func (t EvidenceType) Valid() bool {
	for _, known := range EvidenceTypes {
		if known == t {
			return true
		}
	}
	return false
}

// DisplayName returns the human-readable slot label.
func (t EvidenceType) DisplayName() string {
	switch t {
	case EvidenceNamaODP:
		return "Nama ODP"
	case EvidenceSNONT:
		return "Serial Number ONT"
	case EvidenceFotoSNONT:
		return "Foto Serial Number ONT"
	case EvidenceFotoTeknisiPelanggan:
		return "Foto Teknisi + Pelanggan"
	case EvidenceFotoRumahPelanggan:
		return "Foto Rumah Pelanggan"
	case EvidenceFotoDepanODP:
		return "Foto Depan ODP"
	case EvidenceFotoDalamODP:
		return "Foto Dalam ODP"
	case EvidenceFotoLabelDC:
		return "Foto Label DC"
	case EvidenceFotoTestRedaman:
		return "Foto Hasil Test Redaman di ODP"
	default:
		return string(t)
	}
}

// EvidenceItem is one uploaded artifact. Rows are append-only; the most
// recent row per (order, type) wins for display purposes.
type EvidenceItem struct {
	ID         int64
	OrderID    int64
	Type       EvidenceType
	FileRef    string
	FileName   string
	TextValue  string
	UploadedBy int64
	UploadedAt time.Time
}
