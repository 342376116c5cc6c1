package auth

// Operation names the portal gates on.
const (
	PermUserCreate     = "USER_CREATE"
	PermUserView       = "USER_VIEW"
	PermUserUpdate     = "USER_UPDATE"
	PermUserDelete     = "USER_DELETE"
	PermUserAssignRole = "USER_ASSIGN_ROLE"
	PermUserRevokeRole = "USER_REVOKE_ROLE"
	PermInviteEmployee = "INVITE_EMPLOYEE"

	PermCreateRole = "CREATE_ROLE"
	PermViewRole   = "VIEW_ROLE"
	PermUpdateRole = "UPDATE_ROLE"
	PermDeleteRole = "DELETE_ROLE"

	PermViewOperations = "VIEW_OPERATIONS"

	PermCompanyCreate     = "COMPANY_CREATE"
	PermCompanyView       = "COMPANY_VIEW"
	PermCompanyUpdate     = "COMPANY_UPDATE"
	PermCompanyDelete     = "COMPANY_DELETE"
	PermCompanyOnboard    = "COMPANY_ONBOARD"
	PermCompanyVerify     = "COMPANY_VERIFY"
	PermCompanyActivate   = "COMPANY_ACTIVATE"
	PermCompanyDeactivate = "COMPANY_DEACTIVATE"

	PermProductCreate      = "PRODUCT_CREATE"
	PermProductView        = "PRODUCT_VIEW"
	PermProductUpdate      = "PRODUCT_UPDATE"
	PermProductDelete      = "PRODUCT_DELETE"
	PermProductPriceUpdate = "PRODUCT_PRICE_UPDATE"
	PermProductStockUpdate = "PRODUCT_STOCK_UPDATE"
	PermProductBulkUpload  = "PRODUCT_BULK_UPLOAD"

	PermPOCreate  = "PO_CREATE"
	PermPOView    = "PO_VIEW"
	PermPOUpdate  = "PO_UPDATE"
	PermPOCancel  = "PO_CANCEL"
	PermPOApprove = "PO_APPROVE"
	PermPOReject  = "PO_REJECT"
	PermPOClose   = "PO_CLOSE"

	PermSOCreate   = "SO_CREATE"
	PermSOView     = "SO_VIEW"
	PermSOUpdate   = "SO_UPDATE"
	PermSOCancel   = "SO_CANCEL"
	PermSODispatch = "SO_DISPATCH"
	PermSODeliver  = "SO_DELIVER"

	PermInventoryView        = "INVENTORY_VIEW"
	PermInventoryAddStock    = "INVENTORY_ADD_STOCK"
	PermInventoryRemoveStock = "INVENTORY_REMOVE_STOCK"
	PermInventoryAdjustment  = "INVENTORY_ADJUSTMENT"
	PermInventoryTransfer    = "INVENTORY_TRANSFER"

	PermPaymentInitiate = "PAYMENT_INITIATE"
	PermPaymentReceive  = "PAYMENT_RECEIVE"
	PermPaymentRefund   = "PAYMENT_REFUND"
	PermPaymentFailed   = "PAYMENT_FAILED"
)

// Catalogue lists every known operation name.
var Catalogue = []string{
	PermUserCreate, PermUserView, PermUserUpdate, PermUserDelete, PermUserAssignRole, PermUserRevokeRole, PermInviteEmployee,
	PermCreateRole, PermViewRole, PermUpdateRole, PermDeleteRole,
	PermViewOperations,
	PermCompanyCreate, PermCompanyView, PermCompanyUpdate, PermCompanyDelete, PermCompanyOnboard, PermCompanyVerify, PermCompanyActivate, PermCompanyDeactivate,
	PermProductCreate, PermProductView, PermProductUpdate, PermProductDelete, PermProductPriceUpdate, PermProductStockUpdate, PermProductBulkUpload,
	PermPOCreate, PermPOView, PermPOUpdate, PermPOCancel, PermPOApprove, PermPOReject, PermPOClose,
	PermSOCreate, PermSOView, PermSOUpdate, PermSOCancel, PermSODispatch, PermSODeliver,
	PermInventoryView, PermInventoryAddStock, PermInventoryRemoveStock, PermInventoryAdjustment, PermInventoryTransfer,
	PermPaymentInitiate, PermPaymentReceive, PermPaymentRefund, PermPaymentFailed,
}

// KnownPermission reports whether name is in the catalogue.
func KnownPermission(name string) bool {
	for _, p := range Catalogue {
		if p == name {
			return true
		}
	}
	return false
}

func CanInviteEmployee(u *User) bool   { return HasPermission(u, PermInviteEmployee) }
func CanCreateRole(u *User) bool       { return HasPermission(u, PermCreateRole) }
func CanViewRoles(u *User) bool        { return HasPermission(u, PermViewRole) }
func CanViewOperations(u *User) bool   { return HasPermission(u, PermViewOperations) }
func CanManageRoles(u *User) bool      { return HasPermission(u, PermUserAssignRole) }
func CanViewUsers(u *User) bool        { return HasPermission(u, PermUserView) }
func CanViewProducts(u *User) bool     { return HasPermission(u, PermProductView) }
func CanViewSalesOrders(u *User) bool  { return HasPermission(u, PermSOView) }
func CanCreateSalesOrder(u *User) bool { return HasPermission(u, PermSOCreate) }
func CanUpdateSalesOrder(u *User) bool { return HasPermission(u, PermSOUpdate) }
func CanCancelSalesOrder(u *User) bool { return HasPermission(u, PermSOCancel) }

func CanDispatchSalesOrder(u *User) bool { return HasPermission(u, PermSODispatch) }
func CanDeliverSalesOrder(u *User) bool  { return HasPermission(u, PermSODeliver) }

// CanViewPayments holds for any user who can initiate, receive or refund a payment.
func CanViewPayments(u *User) bool {
	return HasAny(u, PermPaymentInitiate, PermPaymentReceive, PermPaymentRefund)
}

func CanManageProducts(u *User) bool {
	return HasAny(u, PermProductCreate, PermProductUpdate, PermProductDelete)
}

func CanManageInventory(u *User) bool {
	return HasAny(u, PermInventoryAddStock, PermInventoryRemoveStock, PermInventoryAdjustment, PermInventoryTransfer)
}

func CanManageOrders(u *User) bool {
	return HasAny(u, PermPOCreate, PermSOCreate)
}
