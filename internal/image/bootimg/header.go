package bootimg

// FieldMask selects which header fields a format can faithfully report.
type FieldMask uint32

const (
	FieldBoardName FieldMask = 1 << iota
	FieldKernelCmdline
	FieldPageSize
	FieldKernelAddress
	FieldRamdiskAddress
	FieldSecondAddress
	FieldTagsAddress
	FieldOSVersion
)

// Header is the reconstructed, format-independent boot image header.
// Values flow in through the setters, which reject fields outside the
// supported set so a format cannot silently report data it never had.
type Header struct {
	supported FieldMask

	BoardName     string
	KernelCmdline string
	PageSize      uint32
	KernelAddr    uint32
	RamdiskAddr   uint32
	SecondAddr    uint32
	TagsAddr      uint32
	OSVersion     uint32
}

func NewHeader(supported FieldMask) *Header {
	return &Header{supported: supported}
}

func (h *Header) Supported() FieldMask { return h.supported }

func (h *Header) check(f FieldMask) error {
	if h.supported&f == 0 {
		return ErrUnsupportedField
	}
	return nil
}

func (h *Header) SetBoardName(v string) error {
	if err := h.check(FieldBoardName); err != nil {
		return err
	}
	h.BoardName = v
	return nil
}

func (h *Header) SetKernelCmdline(v string) error {
	if err := h.check(FieldKernelCmdline); err != nil {
		return err
	}
	h.KernelCmdline = v
	return nil
}

func (h *Header) SetPageSize(v uint32) error {
	if err := h.check(FieldPageSize); err != nil {
		return err
	}
	h.PageSize = v
	return nil
}

func (h *Header) SetKernelAddress(v uint32) error {
	if err := h.check(FieldKernelAddress); err != nil {
		return err
	}
	h.KernelAddr = v
	return nil
}

func (h *Header) SetRamdiskAddress(v uint32) error {
	if err := h.check(FieldRamdiskAddress); err != nil {
		return err
	}
	h.RamdiskAddr = v
	return nil
}

func (h *Header) SetSecondBootAddress(v uint32) error {
	if err := h.check(FieldSecondAddress); err != nil {
		return err
	}
	h.SecondAddr = v
	return nil
}

func (h *Header) SetKernelTagsAddress(v uint32) error {
	if err := h.check(FieldTagsAddress); err != nil {
		return err
	}
	h.TagsAddr = v
	return nil
}

func (h *Header) SetOSVersion(v uint32) error {
	if err := h.check(FieldOSVersion); err != nil {
		return err
	}
	h.OSVersion = v
	return nil
}
