package inventory

import "inventarioti/inventory-api/internal/store"

// AssetInput is the body of an asset creation.
type AssetInput struct {
	Serial         string `json:"serie" validate:"required" msg:"Serie requerida"`
	Brand          string `json:"marca" validate:"required" msg:"Marca requerida"`
	Model          string `json:"modelo" validate:"required" msg:"Modelo requerido"`
	Status         string `json:"estado" validate:"oneof=Asignado Disponible Mantenimiento Descartado" msg:"Estado inválido"`
	ResponsibleRUT string `json:"rut_responsable" validate:"required" msg:"RUT requerido"`
	Location       string `json:"ubicacion" validate:"required" msg:"Ubicación requerida"`
	DeviceType     string `json:"tipo_dispositivo" validate:"oneof=Laptop Desktop Smartphone Tablet Impresora Otro" msg:"Tipo de dispositivo inválido"`
	Notes          string `json:"observaciones"`
	PurchaseDate   string `json:"fecha_compra"`
	Value          string `json:"valor"`
	InvoiceNumber  string `json:"numero_factura"`
}

// AssetPatchInput is the body of a partial asset update. Absent fields
// keep their stored value.
type AssetPatchInput struct {
	Brand          *string `json:"marca" validate:"omitnil,min=1" msg:"Marca requerida"`
	Model          *string `json:"modelo" validate:"omitnil,min=1" msg:"Modelo requerido"`
	Status         *string `json:"estado" validate:"omitnil,oneof=Asignado Disponible Mantenimiento Descartado" msg:"Estado inválido"`
	ResponsibleRUT *string `json:"rut_responsable" validate:"omitnil,min=1" msg:"RUT requerido"`
	Location       *string `json:"ubicacion" validate:"omitnil,min=1" msg:"Ubicación requerida"`
	DeviceType     *string `json:"tipo_dispositivo" validate:"omitnil,oneof=Laptop Desktop Smartphone Tablet Impresora Otro" msg:"Tipo de dispositivo inválido"`
	Notes          *string `json:"observaciones"`
	PurchaseDate   *string `json:"fecha_compra"`
	Value          *string `json:"valor"`
	InvoiceNumber  *string `json:"numero_factura"`
}

type CollaboratorInput struct {
	RUT      string `json:"rut" validate:"required" msg:"RUT requerido"`
	Name     string `json:"nombre" validate:"required" msg:"Nombre requerido"`
	Email    string `json:"correo" validate:"required,email" msg:"Email inválido"`
	Area     string `json:"area" validate:"oneof=Operaciones Administración Logística TI RRHH" msg:"Área inválida"`
	Position string `json:"cargo"`
	Phone    string `json:"telefono"`
}

type CollaboratorPatchInput struct {
	Name     *string `json:"nombre" validate:"omitnil,min=1" msg:"Nombre requerido"`
	Email    *string `json:"correo" validate:"omitnil,email" msg:"Email inválido"`
	Area     *string `json:"area" validate:"omitnil,oneof=Operaciones Administración Logística TI RRHH" msg:"Área inválida"`
	Position *string `json:"cargo"`
	Phone    *string `json:"telefono"`
}

func (in AssetInput) record() store.Asset {
	return store.Asset{
		Serial:         in.Serial,
		Brand:          in.Brand,
		Model:          in.Model,
		Status:         in.Status,
		ResponsibleRUT: in.ResponsibleRUT,
		Location:       in.Location,
		DeviceType:     in.DeviceType,
		Notes:          in.Notes,
		PurchaseDate:   in.PurchaseDate,
		Value:          in.Value,
		InvoiceNumber:  in.InvoiceNumber,
	}
}

func (in AssetPatchInput) patch() store.AssetPatch {
	return store.AssetPatch{
		Brand:          in.Brand,
		Model:          in.Model,
		Status:         in.Status,
		ResponsibleRUT: in.ResponsibleRUT,
		Location:       in.Location,
		DeviceType:     in.DeviceType,
		Notes:          in.Notes,
		PurchaseDate:   in.PurchaseDate,
		Value:          in.Value,
		InvoiceNumber:  in.InvoiceNumber,
	}
}

func (in CollaboratorInput) record() store.Collaborator {
	return store.Collaborator{
		RUT:      in.RUT,
		Name:     in.Name,
		Email:    in.Email,
		Area:     in.Area,
		Position: in.Position,
		Phone:    in.Phone,
	}
}

func (in CollaboratorPatchInput) patch() store.CollaboratorPatch {
	return store.CollaboratorPatch{
		Name:     in.Name,
		Email:    in.Email,
		Area:     in.Area,
		Position: in.Position,
		Phone:    in.Phone,
	}
}
