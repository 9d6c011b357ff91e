package schema

// Flag 列属性位掩码，取值与 MariaDB 协议一致
type Flag uint32

const (
	FlagNotNull         Flag = 1
	FlagPrimaryKey      Flag = 2
	FlagUniqueKey       Flag = 4
	FlagMultipleKey     Flag = 8
	FlagBlob            Flag = 16
	FlagUnsigned        Flag = 32
	FlagZerofill        Flag = 64
	FlagBinaryCollation Flag = 128
	FlagEnum            Flag = 256
	FlagAutoIncrement   Flag = 512
	FlagTimestamp       Flag = 1024
	FlagSet             Flag = 2048
	FlagNoDefaultValue  Flag = 4096
	FlagOnUpdateNow     Flag = 8192
	FlagNumFlag         Flag = 32768
)

// Has 判断是否包含指定标志
func (f Flag) Has(flag Flag) bool {
	return f&flag != 0
}
