package validation

import "regexp"

// Rule sets for the back-office entities.

func partySchema() Schema {
	return Schema{
		Field("code").Required().Trim().Length(1, 20),
		Field("title").Trim().MaxLength(100),
		Field("businessName").Trim().MaxLength(150),
		Field("contactPerson").Trim().MaxLength(100),
		Field("city").Trim().MaxLength(100),
		Field("address").Trim().MaxLength(500),
		Field("phoneNumber").Trim().MaxLength(20),
		Field("mobileNumber").Trim().MaxLength(20),
		Field("email").Email(),
	}
}

var Customer = append(partySchema(),
	Field("creditDays").IntMin(0),
	Field("creditLimit").FloatMin(0),
)

var Supplier = partySchema()

var Item = Schema{
	Field("itemId").Required().Trim().Length(1, 50),
	Field("description").Trim().MaxLength(500),
	Field("brand").Trim().MaxLength(100),
	Field("sheetsPerPacket").IntMin(1),
	Field("width").FloatMin(0),
	Field("length").FloatMin(0),
	Field("grams").IntMin(0),
	Field("isConstant").Bool(),
	Field("type").Trim().MaxLength(50),
}

var Store = Schema{
	Field("storeName").Required().Trim().Length(1, 100),
	Field("description").Trim().MaxLength(500),
	Field("status").OneOf("Active", "Inactive"),
}

var InvoiceLine = Schema{
	Field("itemId").Required().Trim().Length(1, 50),
	Field("quantity").FloatMin(0),
	Field("weight").FloatMin(0),
	Field("rate").FloatMin(0),
	Field("rateOn").OneOf("Quantity", "Weight"),
	Field("value").FloatMin(0),
	Field("remarks").Trim().MaxLength(255),
}

func invoiceSchema(party string) Schema {
	return Schema{
		// Omitted numbers are assigned by the server on create.
		Field("invoiceNumber").Trim().Length(1, 50),
		Field("invoiceDate").Required().Date(),
		Field(party).Required().IntMin(1),
		Field("storeId").Required().IntMin(1),
		Field("referenceNumber").Trim().MaxLength(100),
		Field("totalAmount").FloatMin(0),
		Field("status").OneOf("DRAFT", "POSTED", "CANCELLED"),
		Field("remarks").Trim().MaxLength(1000),
		Field("lines").Each(InvoiceLine),
	}
}

var SaleInvoice = append(invoiceSchema("customerId"),
	Field("paymentType").OneOf("Cash", "Credit"),
)

var PurchaseInvoice = invoiceSchema("supplierId")

// InvoiceLines is the body of a line replacement.
var InvoiceLines = Schema{
	Field("lines").Required().Each(InvoiceLine),
}

var Search = Schema{
	Field("search").MaxLength(100),
	Field("filter").Trim().MaxLength(50),
	Field("page").IntMin(1),
	Field("limit").IntRange(1, 100),
}

var Login = Schema{
	Field("username").Required().Trim().Length(3, 50),
	Field("password").Required().MinLength(6),
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var Register = Schema{
	Field("username").Required().Trim().Length(3, 50).
		Matches(usernamePattern, "username may only contain letters, numbers and underscores"),
	Field("email").Required().Email(),
	Field("password").Required().MinLength(6),
	Field("role").OneOf("admin", "user"),
}

// ProfileUpdate runs in partial mode; a new password needs the current one.
var ProfileUpdate = Schema{
	Field("email").Required().Email(),
	Field("currentPassword").MinLength(1),
	Field("password").Required().MinLength(6),
}

var UserStatus = Schema{
	Field("isActive").Required().Bool(),
}
